package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/conf"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show and edit the moderation policy of a group",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the group policy as YAML",
	Run:   runPolicyShow,
}

var policySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change individual policy settings",
	Run:   runPolicySet,
}

var policyImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the group policy with a YAML file",
	Args:  cobra.ExactArgs(1),
	Run:   runPolicyImport,
}

var policyExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write the group policy to a YAML file (- for stdout)",
	Args:  cobra.ExactArgs(1),
	Run:   runPolicyExport,
}

var policyRuleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage keyword rules",
}

var policyRuleAddCmd = &cobra.Command{
	Use:   "add KEYWORD...",
	Short: "Add a rule matching any of the keywords",
	Args:  cobra.MinimumNArgs(1),
	Run:   runRuleAdd,
}

var policyRuleRemoveCmd = &cobra.Command{
	Use:   "remove POSITION",
	Short: "Remove the rule at a 1-based position",
	Args:  cobra.ExactArgs(1),
	Run:   runRuleRemove,
}

var policyRuleClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all rules of a kind",
	Run:   runRuleClear,
}

var policyMarksCmd = &cobra.Command{
	Use:   "marks",
	Short: "List warn marks, or clear one with --clear",
	Run:   runPolicyMarks,
}

var policyLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent moderation actions",
	Run:   runPolicyLog,
}

var (
	policyGroup string

	setEnabled      bool
	setOnlyAdmin    bool
	setRequireAdmin bool
	setWelcome      string
	setWarnWindow   int
	setWarnMax      int
	setWarnMessage  string
	setPermAdd      string
	setPermSend     string
	setPermEdit     string

	ruleKind  string
	ruleReply string

	marksClear string
	logLimit   int
)

func init() {
	policyCmd.PersistentFlags().StringVarP(&policyGroup, "group", "g", "", "Group id (defaults to the selected group)")

	f := policySetCmd.Flags()
	f.BoolVar(&setEnabled, "enabled", false, "Turn moderation on or off")
	f.BoolVar(&setOnlyAdmin, "only-admin-can-ban", true, "Restrict /ban to group admins")
	f.BoolVar(&setRequireAdmin, "require-bot-admin", true, "Pause kicks and warns while the bot is not an admin")
	f.StringVar(&setWelcome, "welcome", "", "Welcome template ({name} is replaced)")
	f.IntVar(&setWarnWindow, "warn-window", 0, "Warn window in minutes")
	f.IntVar(&setWarnMax, "warn-max", 0, "Warnings within the window before a kick")
	f.StringVar(&setWarnMessage, "warn-message", "", "Reply sent with each warning")
	f.StringVar(&setPermAdd, "perm-add-member", "", "Who may add members: every-member or only-admins")
	f.StringVar(&setPermSend, "perm-send-message", "", "Who may send messages: every-member or only-admins")
	f.StringVar(&setPermEdit, "perm-edit-details", "", "Who may edit details: every-member or only-admins")

	policyRuleCmd.PersistentFlags().StringVarP(&ruleKind, "kind", "k", "", "Rule kind: reply, warn or ban")
	policyRuleCmd.MarkPersistentFlagRequired("kind")
	policyRuleAddCmd.Flags().StringVarP(&ruleReply, "reply", "r", "", "Reply text (reply rules only)")
	policyRuleCmd.AddCommand(policyRuleAddCmd, policyRuleRemoveCmd, policyRuleClearCmd)

	policyMarksCmd.Flags().StringVar(&marksClear, "clear", "", "Clear the warn mark of this user id")
	policyLogCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of records")

	policyCmd.AddCommand(policyShowCmd, policySetCmd, policyImportCmd, policyExportCmd,
		policyRuleCmd, policyMarksCmd, policyLogCmd)
	rootCmd.AddCommand(policyCmd)
}

// groupApp opens the app and resolves the target group
func groupApp(ctx context.Context) (*app, string) {
	a := mustApp(ctx)
	groupID, err := a.policy.ResolveGroup(ctx, policyGroup)
	if err != nil {
		a.Close()
		exitf("%v", err)
	}
	return a, groupID
}

func mustKind() domain.RuleKind {
	kind, ok := domain.ParseRuleKind(ruleKind)
	if !ok {
		exitf("Unknown rule kind %q (want reply, warn or ban)", ruleKind)
	}
	return kind
}

func runPolicyShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	cfg, err := a.policy.Get(ctx, groupID)
	if err != nil {
		exitf("%v", err)
	}
	printHeader("📋 " + cfg.GroupName)
	fmt.Printf("id: %s\n", cfg.GroupID)
	if cfg.BotHasAdmin {
		fmt.Println("bot admin: " + color.GreenString("yes"))
	} else {
		fmt.Println("bot admin: " + color.RedString("no"))
	}
	fmt.Printf("known members: %d\n\n", len(cfg.LastMembersSnapshot))

	data, err := conf.PolicyFromConfig(cfg).Marshal()
	if err != nil {
		exitf("%v", err)
	}
	os.Stdout.Write(data)
}

func runPolicySet(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	f := cmd.Flags()
	cfg, err := a.policy.Update(ctx, groupID, func(cfg *domain.GroupConfig) error {
		if f.Changed("enabled") {
			cfg.Enabled = setEnabled
		}
		if f.Changed("only-admin-can-ban") {
			cfg.OnlyAdminCanBan = setOnlyAdmin
		}
		if f.Changed("require-bot-admin") {
			cfg.RequireBotAdminToEnforce = setRequireAdmin
		}
		if f.Changed("welcome") {
			cfg.WelcomeTemplate = setWelcome
		}
		if f.Changed("warn-window") {
			cfg.WarnWindowMinutes = setWarnWindow
		}
		if f.Changed("warn-max") {
			cfg.WarnMaxCount = setWarnMax
		}
		if f.Changed("warn-message") {
			cfg.WarnMessage = setWarnMessage
		}
		if f.Changed("perm-add-member") {
			cfg.PermissionAddMember = domain.NormalizePermission(setPermAdd)
		}
		if f.Changed("perm-send-message") {
			cfg.PermissionSendMessage = domain.NormalizePermission(setPermSend)
		}
		if f.Changed("perm-edit-details") {
			cfg.PermissionEditDetails = domain.NormalizePermission(setPermEdit)
		}
		cfg.Normalize()
		return nil
	})
	if err != nil {
		exitf("Failed to update policy: %v", err)
	}
	printOK("Policy of %s saved (enabled: %t)", cfg.GroupName, cfg.Enabled)
	fmt.Println("Restart the daemon to apply permission changes.")
}

func runPolicyImport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	pf, err := conf.LoadPolicyFile(args[0])
	if err != nil {
		exitf("%v", err)
	}
	next := domain.NewGroupConfig(groupID)
	pf.Apply(next)
	cfg, err := a.policy.Replace(ctx, groupID, next)
	if err != nil {
		exitf("Failed to import policy: %v", err)
	}
	printOK("Imported %s into %s: %d replies, %d warn rules, %d ban rules",
		args[0], groupID, len(cfg.AutoReplies), len(cfg.WarnRules), len(cfg.BanRules))
}

func runPolicyExport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	cfg, err := a.policy.Get(ctx, groupID)
	if err != nil {
		exitf("%v", err)
	}
	pf := conf.PolicyFromConfig(cfg)
	if args[0] == "-" {
		data, err := pf.Marshal()
		if err != nil {
			exitf("%v", err)
		}
		os.Stdout.Write(data)
		return
	}
	if err := conf.WritePolicyFile(args[0], pf); err != nil {
		exitf("%v", err)
	}
	printOK("Wrote %s", args[0])
}

func runRuleAdd(cmd *cobra.Command, args []string) {
	kind := mustKind()
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	cfg, err := a.policy.AddRule(ctx, groupID, domain.Rule{Kind: kind, Keywords: args, Reply: ruleReply})
	if err != nil {
		exitf("Failed to add rule: %v", err)
	}
	printOK("Added %s rule #%d", kind, len(cfg.Rules(kind)))
	printRules(cfg, kind)
}

func runRuleRemove(cmd *cobra.Command, args []string) {
	kind := mustKind()
	pos, err := strconv.Atoi(args[0])
	if err != nil || pos < 1 {
		exitf("Position must be a number starting at 1")
	}
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	cfg, err := a.policy.RemoveRule(ctx, groupID, kind, pos-1)
	if err != nil {
		exitf("Failed to remove rule: %v", err)
	}
	printOK("Removed %s rule #%d", kind, pos)
	printRules(cfg, kind)
}

func runRuleClear(cmd *cobra.Command, args []string) {
	kind := mustKind()
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	if _, err := a.policy.ClearRules(ctx, groupID, kind); err != nil {
		exitf("Failed to clear rules: %v", err)
	}
	printOK("Cleared all %s rules", kind)
}

func printRules(cfg *domain.GroupConfig, kind domain.RuleKind) {
	for i, r := range cfg.Rules(kind) {
		line := fmt.Sprintf("%2d. %s", i+1, strings.Join(r.Keywords, " | "))
		if r.Reply != "" {
			line += " -> " + r.Reply
		}
		fmt.Println(line)
	}
}

func runPolicyMarks(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	if marksClear != "" {
		if err := a.policy.ClearWarnMark(ctx, groupID, marksClear); err != nil {
			exitf("Failed to clear warn mark: %v", err)
		}
		printOK("Cleared warnings of %s", marksClear)
		return
	}

	marks, err := a.policy.WarnMarks(ctx, groupID)
	if err != nil {
		exitf("Failed to list warn marks: %v", err)
	}
	if len(marks) == 0 {
		fmt.Println("No warn marks.")
		return
	}
	for _, m := range marks {
		fmt.Printf("%s  count: %d  since: %s\n", m.UserID, m.Count, m.FirstAt.Local().Format(time.DateTime))
	}
}

func runPolicyLog(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a, groupID := groupApp(ctx)
	defer a.Close()

	if err := a.repos.OpenAudit(a.cfg); err != nil {
		exitf("%v", err)
	}
	if a.repos.AuditLog == nil {
		exitf("The audit log is off (MAGICBOT_AUDIT=false)")
	}
	records, err := a.repos.AuditLog.Recent(ctx, groupID, logLimit)
	if err != nil {
		exitf("Failed to read audit log: %v", err)
	}
	for _, r := range records {
		result := color.GreenString("ok")
		if r.Failed {
			result = color.RedString("failed")
		}
		fmt.Printf("%s  %-10s %-6s target=%s actor=%s %s\n",
			r.CreatedAt.Local().Format(time.DateTime), r.Action, result, r.TargetID, r.ActorID, r.Reason)
	}
}
