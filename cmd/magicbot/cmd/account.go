package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/infra/signalcli"
)

const captchaURL = "https://signalcaptchas.org/challenge/generate.html"

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Link, register and forget the gateway account",
}

var accountLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link this machine as a secondary device (scan the QR code)",
	Run:   runAccountLink,
}

var accountRegisterCmd = &cobra.Command{
	Use:   "register PHONE",
	Short: "Register a phone number as the primary device",
	Args:  cobra.ExactArgs(1),
	Run:   runAccountRegister,
}

var accountVerifyCmd = &cobra.Command{
	Use:   "verify PHONE CODE",
	Short: "Finish a registration with the received code",
	Args:  cobra.ExactArgs(2),
	Run:   runAccountVerify,
}

var accountCaptchaCmd = &cobra.Command{
	Use:   "captcha TOKEN",
	Short: "Submit a solved captcha to lift a rate limit",
	Args:  cobra.ExactArgs(1),
	Run:   runAccountCaptcha,
}

var accountLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the account, every group policy and every warn mark",
	Run:   runAccountLogout,
}

var (
	linkName      string
	linkConfigDir string

	registerVoice   bool
	registerCaptcha string
	verifyPin       string

	captchaChallenge string

	logoutDeleteData bool
)

func init() {
	accountLinkCmd.Flags().StringVarP(&linkName, "name", "n", domain.DefaultBotName, "Device name shown on the phone")
	accountLinkCmd.Flags().StringVar(&linkConfigDir, "config-dir", "", "signal-cli config directory")
	accountRegisterCmd.Flags().BoolVar(&registerVoice, "voice", false, "Request the code by voice call")
	accountRegisterCmd.Flags().StringVar(&registerCaptcha, "captcha", "", "Solved captcha token ("+captchaURL+")")
	accountVerifyCmd.Flags().StringVar(&verifyPin, "pin", "", "Registration lock PIN")
	accountCaptchaCmd.Flags().StringVar(&captchaChallenge, "challenge", "", "Challenge token from the rate limit error")
	accountLogoutCmd.Flags().BoolVar(&logoutDeleteData, "delete-gateway-data", false, "Also delete the account's local signal-cli data")

	accountCmd.AddCommand(accountLinkCmd, accountRegisterCmd, accountVerifyCmd, accountCaptchaCmd, accountLogoutCmd)
	rootCmd.AddCommand(accountCmd)
}

func runAccountLink(cmd *cobra.Command, args []string) {
	printHeader("🔗 MagicBot Link")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := mustApp(ctx)
	defer a.Close()

	if linkConfigDir != "" {
		dir, err := filepath.Abs(linkConfigDir)
		if err != nil {
			exitf("%v", err)
		}
		if err := a.saveGlobal(ctx, func(g *domain.GlobalConfig) { g.GatewayConfigDir = dir }); err != nil {
			exitf("Failed to save config: %v", err)
		}
		a.client = signalcli.NewClient(a.cfg.SignalCLI, dir, a.global.Account)
		a.client.SetTimeout(a.cfg.GatewayCallTimeout)
	}
	if _, err := a.client.LookPath(); err != nil {
		exitf("%v", err)
	}

	// Linking waits for the phone; no call timeout applies.
	err := a.client.Link(ctx, linkName, func(uri string) {
		fmt.Println("Open Signal on your phone: Settings > Linked devices > Link new device")
		fmt.Println()
		fmt.Println(uri)
		fmt.Println()
		if qr, err := qrcode.New(uri, qrcode.Medium); err == nil {
			fmt.Println(qr.ToSmallString(false))
		} else {
			fmt.Printf("Failed to render QR code: %v\n", err)
		}
		fmt.Println("Waiting for the phone to confirm...")
	})
	if err != nil {
		exitf("Link failed: %v", err)
	}

	accounts, err := a.client.ListAccounts(ctx)
	if err != nil {
		exitf("Linked, but failed to list accounts: %v", err)
	}
	if len(accounts) == 0 {
		exitf("Linked, but signal-cli reports no account")
	}
	if err := a.saveGlobal(ctx, func(g *domain.GlobalConfig) { g.Account = accounts[0] }); err != nil {
		exitf("Failed to save config: %v", err)
	}
	printOK("Linked account %s", accounts[0])
	if len(accounts) > 1 {
		fmt.Printf("Other accounts on this machine: %v\n", accounts[1:])
	}
	fmt.Println("\nNext: magicbot group list && magicbot group select GROUP_ID")
}

func runAccountRegister(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a := mustApp(ctx)
	defer a.Close()

	if err := a.client.Register(ctx, args[0], registerVoice, registerCaptcha); err != nil {
		fmt.Printf("If signal-cli asks for a captcha, solve one at %s and pass --captcha.\n", captchaURL)
		exitf("Register failed: %v", err)
	}
	printOK("Code requested for %s; run `magicbot account verify %s CODE`", args[0], args[0])
}

func runAccountVerify(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a := mustApp(ctx)
	defer a.Close()

	if err := a.client.Verify(ctx, args[0], args[1], verifyPin); err != nil {
		exitf("Verify failed: %v", err)
	}
	if err := a.saveGlobal(ctx, func(g *domain.GlobalConfig) { g.Account = args[0] }); err != nil {
		exitf("Failed to save config: %v", err)
	}
	printOK("Registered account %s", args[0])
}

func runAccountCaptcha(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	a := mustApp(ctx)
	defer a.Close()

	if a.global.Account == "" {
		exitf("%v", domain.ErrNoAccount)
	}
	if err := a.client.SubmitRateLimitChallenge(ctx, captchaChallenge, args[0]); err != nil {
		exitf("Captcha rejected: %v", err)
	}
	printOK("Rate limit challenge accepted")
}

func runAccountLogout(cmd *cobra.Command, args []string) {
	if os.Geteuid() != 0 {
		exitf("logout must run as root")
	}
	ctx := context.Background()
	a := mustApp(ctx)
	defer a.Close()

	if logoutDeleteData && a.global.Account != "" {
		if err := a.client.DeleteLocalAccountData(ctx); err != nil {
			fmt.Printf("Failed to delete signal-cli data: %v\n", err)
		}
	}
	if _, err := a.policy.Reset(ctx); err != nil {
		exitf("Failed to reset state: %v", err)
	}
	printOK("Logged out; group policies and warn marks were removed")
}
