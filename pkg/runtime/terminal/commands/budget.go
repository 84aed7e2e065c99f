package commands

import (
	"fmt"

	"github.com/de-tools/lakespend/pkg/adapters"
	"github.com/de-tools/lakespend/pkg/models/api"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

func NewBudgetCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage account budgets and budget policies",
	}
	cmd.AddCommand(newPolicyCmd(provider, reporter))
	cmd.AddCommand(newBudgetCreateCmd(provider, reporter))
	cmd.AddCommand(newBudgetListCmd(provider, reporter))
	cmd.AddCommand(newBudgetDeleteCmd(provider, reporter))
	return cmd
}

func newPolicyCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage budget policies and their resources",
	}
	cmd.AddCommand(newPolicyCreateCmd(provider, reporter))
	cmd.AddCommand(newPolicyIDCmd(provider, reporter, "get", "Show one budget policy", getPolicy))
	cmd.AddCommand(newPolicyListCmd(provider, reporter))
	cmd.AddCommand(newPolicyUpdateCmd(provider, reporter))
	cmd.AddCommand(newPolicyIDCmd(provider, reporter, "delete", "Delete a budget policy", deletePolicy))
	cmd.AddCommand(newPolicyApplyCmd(provider, reporter))
	cmd.AddCommand(newPolicyIDCmd(provider, reporter, "resources", "List the resources tagged with a policy", policyResources))
	cmd.AddCommand(newPolicyReportCmd(provider, reporter))
	cmd.AddCommand(newPolicyIDCmd(provider, reporter, "spend", "Show the month to date spend of a policy", policySpend))
	return cmd
}

type PolicyCreateCmd struct {
	name        string
	displayName string
	maxBudget   float64
	thresholds  []string
	provider    Provider
	reporter    *export.Reporter
}

func newPolicyCreateCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	pc := &PolicyCreateCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a budget policy",
		RunE:  pc.run,
	}

	cmd.Flags().StringVar(&pc.name, "name", "", "Policy name")
	cmd.Flags().StringVar(&pc.displayName, "display-name", "", "Policy display name")
	cmd.Flags().Float64Var(&pc.maxBudget, "max-monthly-budget", 0, "Maximum monthly budget")
	cmd.Flags().StringSliceVar(&pc.thresholds, "threshold", nil, "Alert thresholds as fractions (e.g., 0.5,0.9)")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("max-monthly-budget")

	return cmd
}

func (pc *PolicyCreateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	thresholds, err := parseThresholds(pc.thresholds)
	if err != nil {
		return err
	}
	svc, err := pc.provider(cmd)
	if err != nil {
		return err
	}

	id, err := svc.Budget.CreatePolicy(ctx, pc.name, pc.displayName, pc.maxBudget, thresholds)
	if err != nil {
		return fmt.Errorf("failed to create budget policy: %w", err)
	}
	policy, err := svc.Budget.GetPolicy(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get budget policy: %w", err)
	}
	return pc.reporter.JSON(adapters.MapBudgetPolicyDomainToApi(*policy))
}

type PolicyListCmd struct {
	provider Provider
	reporter *export.Reporter
}

func newPolicyListCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	lc := &PolicyListCmd{provider: provider, reporter: reporter}
	return &cobra.Command{
		Use:   "list",
		Short: "List budget policies",
		RunE:  lc.run,
	}
}

func (lc *PolicyListCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := lc.provider(cmd)
	if err != nil {
		return err
	}
	policies, err := svc.Budget.ListPolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list budget policies: %w", err)
	}
	return lc.reporter.JSON(adapters.MapBudgetPoliciesDomainToApi(policies))
}

type policyAction func(cmd *cobra.Command, svc *Services, reporter *export.Reporter, policyID string) error

// PolicyIDCmd runs an action that only needs a policy id.
type PolicyIDCmd struct {
	policyID string
	action   policyAction
	provider Provider
	reporter *export.Reporter
}

func newPolicyIDCmd(provider Provider, reporter *export.Reporter, use, short string, action policyAction) *cobra.Command {
	ic := &PolicyIDCmd{action: action, provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE:  ic.run,
	}

	cmd.Flags().StringVar(&ic.policyID, "id", "", "Budget policy id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func (ic *PolicyIDCmd) run(cmd *cobra.Command, _ []string) error {
	svc, err := ic.provider(cmd)
	if err != nil {
		return err
	}
	return ic.action(cmd, svc, ic.reporter, ic.policyID)
}

func getPolicy(cmd *cobra.Command, svc *Services, reporter *export.Reporter, policyID string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	policy, err := svc.Budget.GetPolicy(ctx, policyID)
	if err != nil {
		return fmt.Errorf("failed to get budget policy: %w", err)
	}
	return reporter.JSON(adapters.MapBudgetPolicyDomainToApi(*policy))
}

func deletePolicy(cmd *cobra.Command, svc *Services, reporter *export.Reporter, policyID string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := svc.Budget.DeletePolicy(ctx, policyID); err != nil {
		return fmt.Errorf("failed to delete budget policy: %w", err)
	}
	return reporter.JSON(api.Deleted{ID: policyID, Deleted: true})
}

func policyResources(cmd *cobra.Command, svc *Services, reporter *export.Reporter, policyID string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resources, err := svc.Budget.ResourcesWithPolicy(ctx, policyID)
	if err != nil {
		return fmt.Errorf("failed to list policy resources: %w", err)
	}
	return reporter.JSON(adapters.MapPolicyResourcesDomainToApi(policyID, resources))
}

func policySpend(cmd *cobra.Command, svc *Services, reporter *export.Reporter, policyID string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	spend, err := svc.Budget.PolicySpend(ctx, policyID)
	if err != nil {
		return fmt.Errorf("failed to get policy spend: %w", err)
	}
	return reporter.PolicySpend(adapters.MapPolicySpendDomainToApi(*spend))
}

type PolicyUpdateCmd struct {
	policyID    string
	name        string
	displayName string
	maxBudget   float64
	thresholds  []string
	provider    Provider
	reporter    *export.Reporter
}

func newPolicyUpdateCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	uc := &PolicyUpdateCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the fields of a budget policy that are passed as flags",
		RunE:  uc.run,
	}

	cmd.Flags().StringVar(&uc.policyID, "id", "", "Budget policy id")
	cmd.Flags().StringVar(&uc.name, "name", "", "New policy name")
	cmd.Flags().StringVar(&uc.displayName, "display-name", "", "New display name")
	cmd.Flags().Float64Var(&uc.maxBudget, "max-monthly-budget", 0, "New maximum monthly budget")
	cmd.Flags().StringSliceVar(&uc.thresholds, "threshold", nil, "New alert thresholds as fractions")

	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func (uc *PolicyUpdateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	update := domain.PolicyUpdate{
		Name:             stringFlag(cmd, "name", uc.name),
		DisplayName:      stringFlag(cmd, "display-name", uc.displayName),
		MaxMonthlyBudget: floatFlag(cmd, "max-monthly-budget", uc.maxBudget),
	}
	if cmd.Flags().Changed("threshold") {
		thresholds, err := parseThresholds(uc.thresholds)
		if err != nil {
			return err
		}
		update.AlertThresholds = thresholds
	}
	svc, err := uc.provider(cmd)
	if err != nil {
		return err
	}

	policy, err := svc.Budget.UpdatePolicy(ctx, uc.policyID, update)
	if err != nil {
		return fmt.Errorf("failed to update budget policy: %w", err)
	}
	return uc.reporter.JSON(adapters.MapBudgetPolicyDomainToApi(*policy))
}

type PolicyApplyCmd struct {
	policyID     string
	resourceType string
	resourceID   string
	provider     Provider
	reporter     *export.Reporter
}

func newPolicyApplyCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	ac := &PolicyApplyCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Tag a resource with a budget policy",
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.policyID, "policy-id", "", "Budget policy id")
	cmd.Flags().StringVar(&ac.resourceType, "type", "", "Resource type")
	cmd.Flags().StringVar(&ac.resourceID, "id", "", "Resource id")

	_ = cmd.MarkFlagRequired("policy-id")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func (ac *PolicyApplyCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	t, err := domain.ParseResourceType(ac.resourceType)
	if err != nil {
		return err
	}
	svc, err := ac.provider(cmd)
	if err != nil {
		return err
	}

	result, err := svc.Budget.ApplyPolicy(ctx, t, ac.resourceID, ac.policyID)
	if err != nil {
		return fmt.Errorf("failed to apply budget policy: %w", err)
	}
	return ac.reporter.JSON(adapters.MapUpdateResultDomainToApi(*result))
}

type PolicyReportCmd struct {
	json     bool
	provider Provider
	reporter *export.Reporter
}

func newPolicyReportCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	rc := &PolicyReportCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report budget policy coverage across resources",
		RunE:  rc.run,
	}
	cmd.Flags().BoolVar(&rc.json, "json", false, "Print the report as JSON")
	return cmd
}

func (rc *PolicyReportCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := rc.provider(cmd)
	if err != nil {
		return err
	}
	report, err := svc.Budget.ComplianceReport(ctx)
	if err != nil {
		return fmt.Errorf("failed to build budget compliance report: %w", err)
	}

	out := adapters.MapBudgetComplianceReportDomainToApi(*report)
	if rc.json {
		return rc.reporter.JSON(out)
	}
	return rc.reporter.BudgetCompliance(out)
}

type BudgetCreateCmd struct {
	displayName string
	policyID    string
	emails      []string
	threshold   float64
	provider    Provider
	reporter    *export.Reporter
}

func newBudgetCreateCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	bc := &BudgetCreateCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account budget, optionally scoped to a policy",
		RunE:  bc.run,
	}

	cmd.Flags().StringVar(&bc.displayName, "display-name", "", "Budget display name")
	cmd.Flags().StringVar(&bc.policyID, "policy-id", "", "Budget policy id to filter usage by")
	cmd.Flags().StringSliceVar(&bc.emails, "email", nil, "Alert email addresses")
	cmd.Flags().Float64Var(&bc.threshold, "threshold", 0, "Monthly spend that triggers the alert")

	_ = cmd.MarkFlagRequired("display-name")
	_ = cmd.MarkFlagRequired("threshold")

	return cmd
}

func (bc *BudgetCreateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := bc.provider(cmd)
	if err != nil {
		return err
	}
	created, err := svc.Budget.CreateBudget(ctx, domain.Budget{
		DisplayName:      bc.displayName,
		PolicyID:         bc.policyID,
		AlertEmails:      bc.emails,
		MonthlyThreshold: bc.threshold,
	})
	if err != nil {
		return fmt.Errorf("failed to create budget: %w", err)
	}
	return bc.reporter.JSON(adapters.MapBudgetDomainToApi(*created))
}

type BudgetListCmd struct {
	provider Provider
	reporter *export.Reporter
}

func newBudgetListCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	lc := &BudgetListCmd{provider: provider, reporter: reporter}
	return &cobra.Command{
		Use:   "list",
		Short: "List account budgets",
		RunE:  lc.run,
	}
}

func (lc *BudgetListCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := lc.provider(cmd)
	if err != nil {
		return err
	}
	budgets, err := svc.Budget.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list budgets: %w", err)
	}
	return lc.reporter.JSON(adapters.MapBudgetsDomainToApi(budgets))
}

type BudgetDeleteCmd struct {
	budgetID string
	provider Provider
	reporter *export.Reporter
}

func newBudgetDeleteCmd(provider Provider, reporter *export.Reporter) *cobra.Command {
	dc := &BudgetDeleteCmd{provider: provider, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an account budget",
		RunE:  dc.run,
	}

	cmd.Flags().StringVar(&dc.budgetID, "id", "", "Budget id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func (dc *BudgetDeleteCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	svc, err := dc.provider(cmd)
	if err != nil {
		return err
	}
	if err := svc.Budget.DeleteBudget(ctx, dc.budgetID); err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return dc.reporter.JSON(api.Deleted{ID: dc.budgetID, Deleted: true})
}
