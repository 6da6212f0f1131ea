package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "List and select gateway groups",
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the groups the account belongs to",
	Run:   runGroupList,
}

var groupSelectCmd = &cobra.Command{
	Use:   "select GROUP_ID",
	Short: "Watch a group and make it the default for policy commands",
	Args:  cobra.ExactArgs(1),
	Run:   runGroupSelect,
}

func init() {
	groupCmd.AddCommand(groupListCmd, groupSelectCmd)
	rootCmd.AddCommand(groupCmd)
}

func runGroupList(cmd *cobra.Command, args []string) {
	printHeader("👥 MagicBot Groups")
	ctx := context.Background()
	a := mustApp(ctx)
	defer a.Close()

	if a.global.Account == "" {
		exitf("No account set, run `magicbot account link` first")
	}
	groups, err := a.policy.GatewayGroups(ctx)
	if err != nil {
		exitf("Failed to list groups: %v", err)
	}
	if len(groups) == 0 {
		fmt.Println("No groups found.")
		return
	}

	watched := make(map[string]bool)
	if cfgs, err := a.policy.Watched(ctx); err == nil {
		for _, c := range cfgs {
			watched[c.GroupID] = true
		}
	}

	for i, g := range groups {
		mark := " "
		if g.ID == a.global.SelectedGroup {
			mark = color.GreenString("*")
		}
		state := ""
		if watched[g.ID] {
			state = color.YellowString(" [watched]")
		}
		fmt.Printf("%s %2d. %s%s\n", mark, i+1, g.Name, state)
		fmt.Printf("      id: %s  members: %d  admins: %d\n", g.ID, len(g.Members), len(g.Admins))
	}
}

func runGroupSelect(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a := mustApp(ctx)
	defer a.Close()

	cfg, err := a.policy.SelectGroup(ctx, args[0])
	if err != nil {
		exitf("Failed to select group: %v", err)
	}
	printOK("Selected %s (%s)", cfg.GroupName, cfg.GroupID)
	if !cfg.Enabled {
		fmt.Println("Moderation is off; enable it with `magicbot policy set --enabled`.")
	}
}
