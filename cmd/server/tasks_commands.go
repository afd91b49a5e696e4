package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/queue"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and manage processing deliveries",
	}

	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksStatsCommand(ctx))
	tasksCmd.AddCommand(newTasksRetryCommand(ctx))

	return tasksCmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued, leased or dead-lettered tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseTaskStatus(status)
			if err != nil {
				return err
			}
			return ctx.withTaskStore(cmd, func(store *queue.Store) error {
				tasks, err := store.List(cmd.Context(), filter, limit)
				if err != nil {
					return err
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
					return nil
				}
				rows := make([][]string, 0, len(tasks))
				for _, t := range tasks {
					rows = append(rows, []string{
						t.ID.String(),
						t.RecordID.String(),
						string(t.Status),
						strconv.Itoa(t.Attempts),
						t.UpdatedAt.Local().Format(time.DateTime),
						strings.ReplaceAll(t.LastError, "\n", " "),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(taskColumns, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (queued, leased, dead)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of tasks to show")
	return cmd
}

func newTasksStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withTaskStore(cmd, func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				keys := make([]string, 0, len(stats))
				for status := range stats {
					keys = append(keys, string(status))
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					rows = append(rows, []string{k, strconv.Itoa(stats[queue.TaskStatus(k)])})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(statsColumns, rows))
				return nil
			})
		},
	}
}

func newTasksRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [task-id...]",
		Short: "Requeue dead-lettered tasks (all of them when no ids are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, arg := range args {
				id, err := uuid.Parse(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("invalid task id %q: %w", arg, err)
				}
				ids = append(ids, id)
			}
			return ctx.withTaskStore(cmd, func(store *queue.Store) error {
				n, err := store.Requeue(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				switch {
				case n == 0:
					fmt.Fprintln(cmd.OutOrStdout(), "No dead tasks matched")
				case n == 1:
					fmt.Fprintln(cmd.OutOrStdout(), "Requeued 1 task")
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d tasks\n", n)
				}
				return nil
			})
		},
	}
}

func parseTaskStatus(value string) (queue.TaskStatus, error) {
	switch s := queue.TaskStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case "", queue.TaskQueued, queue.TaskLeased, queue.TaskDead:
		return s, nil
	default:
		return "", fmt.Errorf("unknown task status %q", value)
	}
}
