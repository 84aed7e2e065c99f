package commands

import (
	"fmt"

	"github.com/de-tools/lakespend/pkg/adapters"
	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

func NewTagsCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Read and change resource tags",
	}
	cmd.AddCommand(newTagsGetCmd(provider, reporter))
	cmd.AddCommand(newTagsUpdateCmd(provider, reporter))
	cmd.AddCommand(newTagsBulkCmd(provider, reporter))
	cmd.AddCommand(newTagsFindCmd(provider, reporter))
	cmd.AddCommand(newTagsReportCmd(provider, reporter))
	return cmd
}

type TagsGetCmd struct {
	resourceType string
	resourceID   string
	all          bool
	provider     Provider
	reporter     *export.Reporter
}

func newTagsGetCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	gc := &TagsGetCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the tags of one resource, or of every resource of a type with --all",
		RunE:  gc.run,
	}

	cmd.Flags().StringVar(&gc.resourceType, "type", "", "Resource type (e.g., cluster, job, table)")
	cmd.Flags().StringVar(&gc.resourceID, "id", "", "Resource id")
	cmd.Flags().BoolVar(&gc.all, "all", false, "List every resource of the type with its tags")

	_ = cmd.MarkFlagRequired("type")
	cmd.MarkFlagsOneRequired("id", "all")
	cmd.MarkFlagsMutuallyExclusive("id", "all")

	return cmd
}

func (gc *TagsGetCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	t, err := domain.ParseResourceType(gc.resourceType)
	if err != nil {
		return err
	}
	svc, err := gc.provider(cmd)
	if err != nil {
		return err
	}

	if gc.all {
		resources, err := svc.Tags.ListAllWithTags(ctx, t)
		if err != nil {
			return fmt.Errorf("failed to list %s resources: %w", t, err)
		}
		return gc.reporter.JSON(adapters.MapResourceListDomainToApi(t, resources))
	}

	tags, err := svc.Tags.GetTags(ctx, t, gc.resourceID)
	if err != nil {
		return fmt.Errorf("failed to get tags: %w", err)
	}
	return gc.reporter.JSON(api.ResourceTags{
		ResourceType: t.String(),
		ResourceID:   gc.resourceID,
		Tags:         adapters.MapTagMapDomainToApi(tags),
	})
}

type TagsUpdateCmd struct {
	resourceType string
	resourceID   string
	tags         []string
	operation    string
	provider     Provider
	reporter     *export.Reporter
}

func newTagsUpdateCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	uc := &TagsUpdateCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Merge, replace or remove tags on one resource",
		RunE:  uc.run,
	}

	cmd.Flags().StringVar(&uc.resourceType, "type", "", "Resource type (e.g., cluster, job, table)")
	cmd.Flags().StringVar(&uc.resourceID, "id", "", "Resource id")
	cmd.Flags().StringArrayVar(&uc.tags, "tag", nil, "Tag as key=value, repeatable. Remove only needs the key")
	cmd.Flags().StringVar(&uc.operation, "operation", string(domain.OperationMerge), "merge, replace or remove")

	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func (uc *TagsUpdateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	t, err := domain.ParseResourceType(uc.resourceType)
	if err != nil {
		return err
	}
	op, err := domain.ParseOperation(uc.operation)
	if err != nil {
		return err
	}
	requested, err := parseTags(uc.tags)
	if err != nil {
		return err
	}
	svc, err := uc.provider(cmd)
	if err != nil {
		return err
	}

	result, err := svc.Tags.UpdateTags(ctx, t, uc.resourceID, requested, op)
	if err != nil {
		return fmt.Errorf("failed to update tags: %w", err)
	}
	return uc.reporter.JSON(adapters.MapUpdateResultDomainToApi(*result))
}

type TagsBulkCmd struct {
	resources []string
	tags      []string
	operation string
	provider  Provider
	reporter  *export.Reporter
}

func newTagsBulkCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	bc := &TagsBulkCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Apply one tag change to many resources",
		RunE:  bc.run,
	}

	cmd.Flags().StringArrayVar(&bc.resources, "resource", nil, "Resource as type:id, repeatable")
	cmd.Flags().StringArrayVar(&bc.tags, "tag", nil, "Tag as key=value, repeatable")
	cmd.Flags().StringVar(&bc.operation, "operation", string(domain.OperationMerge), "merge, replace or remove")

	_ = cmd.MarkFlagRequired("resource")

	return cmd
}

func (bc *TagsBulkCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	entries, err := parseEntries(bc.resources)
	if err != nil {
		return err
	}
	op, err := domain.ParseOperation(bc.operation)
	if err != nil {
		return err
	}
	requested, err := parseTags(bc.tags)
	if err != nil {
		return err
	}
	svc, err := bc.provider(cmd)
	if err != nil {
		return err
	}

	outcomes := svc.Tags.BulkUpdate(ctx, entries, requested, op)
	return bc.reporter.JSON(adapters.MapBulkOutcomesDomainToApi(outcomes))
}

type TagsFindCmd struct {
	key      string
	value    string
	provider Provider
	reporter *export.Reporter
}

func newTagsFindCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	fc := &TagsFindCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find resources carrying a tag key, optionally with a given value",
		RunE:  fc.run,
	}

	cmd.Flags().StringVar(&fc.key, "key", "", "Tag key")
	cmd.Flags().StringVar(&fc.value, "value", "", "Tag value to match exactly")

	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func (fc *TagsFindCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := fc.provider(cmd)
	if err != nil {
		return err
	}

	value := stringFlag(cmd, "value", fc.value)
	matches, scanErrs := svc.Tags.FindByTag(ctx, fc.key, value)
	return fc.reporter.JSON(adapters.MapFindResultDomainToApi(fc.key, value, matches, scanErrs))
}

type TagsReportCmd struct {
	required []string
	json     bool
	provider Provider
	reporter *export.Reporter
}

func newTagsReportCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	rc := &TagsReportCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report which resources lack the required tags",
		RunE:  rc.run,
	}

	cmd.Flags().StringSliceVar(&rc.required, "required", nil, "Required tag keys, comma separated")
	cmd.Flags().BoolVar(&rc.json, "json", false, "Print the report as JSON")

	_ = cmd.MarkFlagRequired("required")

	return cmd
}

func (rc *TagsReportCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := rc.provider(cmd)
	if err != nil {
		return err
	}

	report := adapters.MapComplianceReportDomainToApi(*svc.Tags.ComplianceReport(ctx, rc.required))
	if rc.json {
		return rc.reporter.JSON(report)
	}
	return rc.reporter.TagCompliance(report)
}
