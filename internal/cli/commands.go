package cli

import (
	"fmt"
	"strings"

	"github.com/mpawlak/statsync/pkg/models"
	"github.com/spf13/cobra"
)

type UploadOptions struct {
	DryRun  bool
	FromSQL bool
}

func newUploadCmd() *cobra.Command {
	opts := &UploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload <category>",
		Short: "Upload one category (or 'all') with checkpointed, batched upserts",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cats, err := resolveCategories(args[0])
			if err != nil {
				c.Usage()
				return err
			}
			c.SilenceUsage = true
			return runUpload(opts, cats)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Parse and batch but write nothing")
	cmd.Flags().BoolVar(&opts.FromSQL, "from-sql", false, "Read rows from the SQL staging tables instead of CSV files")

	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [category]",
		Short: "Count destination documents per category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			selector := "all"
			if len(args) == 1 {
				selector = args[0]
			}
			cats, err := resolveCategories(selector)
			if err != nil {
				c.Usage()
				return err
			}
			c.SilenceUsage = true
			return runVerify(cats)
		},
	}
}

func newPurgeCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge <category>",
		Short: "Delete every document in a category's collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(args[0])
			if err != nil {
				c.Usage()
				return err
			}
			c.SilenceUsage = true
			if !yes {
				return fmt.Errorf("refusing to purge %s without --yes", cat)
			}
			return runPurge(cat)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

// resolveCategories turns the positional argument into the category list to
// process, in their fixed lane order.
func resolveCategories(selector string) ([]models.Category, error) {
	if strings.EqualFold(selector, "all") {
		return models.AllCategories, nil
	}
	cat, err := models.ParseCategory(selector)
	if err != nil {
		return nil, err
	}
	return []models.Category{cat}, nil
}
