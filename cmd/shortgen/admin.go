package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/config"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/middleware"
	"github.com/therealutkarshpriyadarshi/shortgen/internal/queue"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

var (
	tokenScopes []string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <client-id>",
	Short: "Issue an API token signed with the configured JWT secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		token, err := issueToken(cfg.Auth, args[0], tokenScopes, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func issueToken(cfg config.AuthConfig, clientID string, scopes []string, ttl time.Duration) (string, error) {
	auth := middleware.NewAuth(cfg.JWTSecret)
	if !auth.Enabled() {
		return "", errors.New("auth.jwtSecret is not set")
	}
	return auth.GenerateToken(clientID, scopes, ttl)
}

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and replay dead-lettered jobs",
}

var dlqDepthCmd = &cobra.Command{
	Use:   "depth",
	Short: "Print the number of jobs in the job and dead letter queues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue()
		if err != nil {
			return err
		}
		defer q.Close()

		jobs, err := q.GetQueueDepth()
		if err != nil {
			return err
		}
		dead, err := q.GetDLQDepth()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "jobs: %d\ndead letters: %d\n", jobs, dead)
		return nil
	},
}

var dlqWait time.Duration

var dlqRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Move every dead-lettered job back to the job queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue()
		if err != nil {
			return err
		}
		defer q.Close()

		dead, err := q.GetDLQDepth()
		if err != nil {
			return err
		}
		if dead == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "dead letter queue is empty")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), dlqWait)
		defer cancel()

		var moved atomic.Int32
		err = q.ConsumeDLQ(ctx, func(job *models.Job, reason string) error {
			job.Status = models.JobStatusQueued
			job.ErrorMsg = ""
			if err := q.RetryFromDLQ(ctx, job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %s (%s)\n", job.ID, reason)
			if int(moved.Add(1)) >= dead {
				cancel()
			}
			return nil
		})
		if err != nil {
			return err
		}

		<-ctx.Done()
		fmt.Fprintf(cmd.OutOrStdout(), "requeued %d of %d jobs\n", moved.Load(), dead)
		return nil
	},
}

func openQueue() (*queue.Queue, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	q, err := queue.New(cfg.Queue, logger)
	if err != nil {
		return nil, err
	}
	if err := q.SetupDeadLetterQueue(); err != nil {
		q.Close()
		return nil, err
	}
	return q, nil
}

func init() {
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", []string{middleware.ScopeWrite}, "scopes granted by the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")

	dlqRetryCmd.Flags().DurationVar(&dlqWait, "wait", 30*time.Second, "how long to wait for dead letters")
	dlqCmd.AddCommand(dlqDepthCmd, dlqRetryCmd)
}
