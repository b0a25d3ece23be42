package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/voc-service/internal/persistence"
	"github.com/spec-kit/voc-service/internal/repository"
	"github.com/spec-kit/voc-service/internal/service"
)

func newCategoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage ticket categories",
	}
	cmd.AddCommand(newCategoryCreateCommand(), newCategoryListCommand())
	return cmd
}

func newCategoryCreateCommand() *cobra.Command {
	var (
		name, description string
		parentID          int64
		sortOrder         int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a category",
		Long:  `Create a MAIN category, or a SUB category when --parent is given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, pg *persistence.Postgres, logger *zap.Logger) error {
				svc := service.NewCategoryService(repository.NewCategoryRepository(pg.Pool()))
				command := service.CreateCategoryCommand{Name: name, Description: description, SortOrder: sortOrder}
				if parentID > 0 {
					command.ParentID = &parentID
				}
				category, err := svc.Create(ctx, command)
				if err != nil {
					return err
				}
				logger.Info("category created", zap.Int64("category_id", category.ID), zap.String("type", string(category.Type)))
				fmt.Fprintf(cmd.OutOrStdout(), "created category %d (%s, %s)\n", category.ID, category.Name, category.Type)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Category name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Optional description")
	cmd.Flags().Int64VarP(&parentID, "parent", "p", 0, "Parent MAIN category id")
	cmd.Flags().IntVar(&sortOrder, "sort", 0, "Display order")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCategoryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, pg *persistence.Postgres, _ *zap.Logger) error {
				categories, err := service.NewCategoryService(repository.NewCategoryRepository(pg.Pool())).ListActive(ctx)
				if err != nil {
					return err
				}
				for _, c := range categories {
					parent := "-"
					if c.ParentID != nil {
						parent = fmt.Sprint(*c.ParentID)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\tparent=%s\n", c.ID, c.Type, c.Name, parent)
				}
				return nil
			})
		},
	}
}
