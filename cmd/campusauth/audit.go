// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"slices"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/campusauth/internal/auth"
)

// NewAuditCmd creates the audit command group.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}
	cmd.AddCommand(newAuditListCmd())
	return cmd
}

type auditListOptions struct {
	identity string
	kind     string
	since    string
	limit    int
	output   string
}

func newAuditListCmd() *cobra.Command {
	opts := &auditListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit events, oldest first",
		Long: `List audit events ordered by time. With --limit only the most recent
events are shown. --since accepts a duration (24h) or an RFC 3339 time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := opts.filter(time.Now())
			if err != nil {
				return err
			}
			app, err := newAdminApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			events, err := app.service.AuditEvents(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if events == nil {
				events = []auth.AuditEvent{}
			}
			return render(cmd.OutOrStdout(), opts.output, events)
		},
	}
	cmd.Flags().StringVar(&opts.identity, "identity", "", "only events for this email")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "only events of this kind")
	cmd.Flags().StringVar(&opts.since, "since", "", "only events after this time or duration ago")
	cmd.Flags().IntVar(&opts.limit, "limit", auth.DefaultAuditListLimit, "maximum number of events")
	addOutputFlag(cmd, &opts.output)
	return cmd
}

// filter converts the flags into an auth.AuditFilter relative to now.
func (o *auditListOptions) filter(now time.Time) (auth.AuditFilter, error) {
	filter := auth.AuditFilter{Identity: o.identity, Limit: o.limit}

	if o.kind != "" {
		kind := auth.EventKind(o.kind)
		if !slices.Contains(auth.EventKinds(), kind) {
			return auth.AuditFilter{}, oops.Code("INVALID_FLAG").With("kind", o.kind).Errorf("unknown event kind %q", o.kind)
		}
		filter.Kind = kind
	}

	if o.since != "" {
		since, err := parseSince(o.since, now)
		if err != nil {
			return auth.AuditFilter{}, err
		}
		filter.Since = since
	}

	if o.limit < 0 {
		return auth.AuditFilter{}, oops.Code("INVALID_FLAG").With("limit", o.limit).Errorf("limit must not be negative")
	}
	return filter, nil
}

func parseSince(value string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return time.Time{}, oops.Code("INVALID_FLAG").With("since", value).Errorf("since duration must not be negative")
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, oops.Code("INVALID_FLAG").With("since", value).Errorf("since must be a duration or RFC 3339 time")
	}
	return t, nil
}
