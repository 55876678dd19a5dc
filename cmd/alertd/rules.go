package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sensordash/alertd/internal/datastore"
	"github.com/sensordash/alertd/internal/datastore/entities"
	"github.com/sensordash/alertd/internal/datastore/repository"
	"github.com/sensordash/alertd/internal/errors"
)

func newRulesCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage alert rules in the local database",
	}
	cmd.AddCommand(
		newRulesListCmd(root),
		newRulesAddCmd(root),
		newRulesDeleteCmd(root),
		newRulesToggleCmd(root),
	)
	return cmd
}

// openRepo opens the rule database named in the settings.
func openRepo(root *rootOptions, stderr io.Writer) (repository.AlertRuleRepository, func(), error) {
	settings, log, err := root.load(stderr)
	if err != nil {
		return nil, nil, err
	}
	if !settings.Database.Enabled {
		return nil, nil, errors.Newf("the local rule database is disabled; set database.enabled").
			Component("cli").
			Category(errors.CategoryConfiguration).
			Build()
	}
	db, err := datastore.Open(settings.Database, log)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return repository.NewAlertRuleRepository(db), func() { _ = sqlDB.Close() }, nil
}

func newRulesListCmd(root *rootOptions) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeDB, err := openRepo(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDB()

			rules, err := repo.ListRules(cmd.Context(), repository.AlertRuleFilter{DeviceID: device})
			if err != nil {
				return err
			}
			return printRules(cmd.OutOrStdout(), rules)
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "only rules of this device")
	return cmd
}

func printRules(w io.Writer, rules []entities.AlertRule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEVICE\tTARGET\tINDEX\tCONDITION\tTHRESHOLD\tACTIVE")
	for i := range rules {
		r := &rules[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%t\n",
			r.ID, r.DeviceID, r.Target(), r.Index(), r.ConditionType,
			strconv.FormatFloat(r.ThresholdValue, 'f', -1, 64), r.IsActive)
	}
	return tw.Flush()
}

func newRulesAddCmd(root *rootOptions) *cobra.Command {
	var (
		rule       entities.AlertRule
		valueIndex int
		inactive   bool
	)
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a rule",
		Example: `  alertd rules add --device greenhouse-1 --sensor-name SHT20_CH1 --condition above --threshold 35`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("value-index") {
				rule.ValueIndex = &valueIndex
			}
			rule.IsActive = !inactive
			if err := rule.Validate(); err != nil {
				return err
			}

			repo, closeDB, err := openRepo(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.CreateRule(cmd.Context(), &rule); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created rule %d\n", rule.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&rule.DeviceID, "device", "d", "", "device id (required)")
	f.StringVar(&rule.SensorName, "sensor-name", "", "channel name, e.g. SHT20_CH1")
	f.StringVar(&rule.SensorType, "sensor-type", "", "sensor type code, used when no name is given")
	f.IntVar(&valueIndex, "value-index", 0, "which value of the channel to compare")
	f.StringVar(&rule.ConditionType, "condition", entities.ConditionAbove, "above or below")
	f.Float64Var(&rule.ThresholdValue, "threshold", 0, "threshold value")
	f.BoolVar(&inactive, "inactive", false, "create the rule disabled")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("threshold")
	return cmd
}

func newRulesDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepo(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.DeleteRule(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted rule %d\n", id)
			return nil
		},
	}
}

func newRulesToggleCmd(root *rootOptions) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "toggle ID",
		Short: "Enable or disable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRuleID(args[0])
			if err != nil {
				return err
			}
			repo, closeDB, err := openRepo(root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.ToggleRule(cmd.Context(), id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rule %d active=%t\n", id, active)
			return nil
		},
	}
	cmd.Flags().BoolVar(&active, "active", true, "new active state")
	return cmd
}

func parseRuleID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Newf("invalid rule id %q", s).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	return uint(id), nil
}
