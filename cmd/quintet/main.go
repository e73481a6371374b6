package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quintet/api/internal/orchestrator"
	"github.com/quintet/api/internal/tui"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBA08"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
)

var rootCmd = &cobra.Command{
	Use:           "quintet",
	Short:         "Quintet generates five styled variants of a web app from one prompt",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate all variants and write them to a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		out, _ := cmd.Flags().GetString("out")

		session, logger, err := newSession(nil)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := session.Submit(ctx, prompt); err != nil {
			return err
		}
		fmt.Println(headStyle.Render(generatingMessage(session)))
		session.Wait()

		states := session.Snapshot()
		for _, st := range states {
			if st.Succeeded() {
				fmt.Printf("  %d. %-20s %s\n", st.Index+1, st.Title, okStyle.Render(fmt.Sprintf("✓ %.1fs", st.ElapsedSeconds)))
			} else {
				fmt.Printf("  %d. %-20s %s\n", st.Index+1, st.Title, errorStyle.Render("✗ "+st.Error))
			}
		}

		paths, err := orchestrator.Export(afero.NewOsFs(), out, states)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println("  wrote", p)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no variant was generated")
		}
		return nil
	},
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Compare, edit and regenerate variants interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")

		updates, notify := tui.NotifyChannel(64)
		session, logger, err := newSession(notify)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		p := tea.NewProgram(tui.New(ctx, session, updates, prompt), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running program: %w", err)
		}
		return nil
	},
}

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List the design variants offered by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := orchestrator.NewAPIClient(viper.GetString("server"), http.DefaultClient)
		vs, err := client.Variants(cmd.Context())
		if err != nil {
			return err
		}
		for _, v := range vs {
			fmt.Printf("%s %s\n", headStyle.Render(fmt.Sprintf("%d. %s", v.Index, v.Title)), v.Style)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Base URL of the generation server")
	rootCmd.PersistentFlags().String("strategy", orchestrator.StrategyVariant, "Request strategy: variant or batch")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log requests to stderr")

	viper.SetEnvPrefix("QUINTET")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlags(rootCmd.PersistentFlags())

	generateCmd.Flags().StringP("prompt", "p", "", "Description of the web app")
	generateCmd.Flags().StringP("out", "o", "variants", "Directory to write the generated HTML files to")
	_ = generateCmd.MarkFlagRequired("prompt")

	tuiCmd.Flags().StringP("prompt", "p", "", "Initial prompt to submit")

	rootCmd.AddCommand(generateCmd, tuiCmd, variantsCmd)
}

func generatingMessage(s *orchestrator.Session) string {
	return fmt.Sprintf("Generating %d variants...", len(s.Snapshot()))
}

func newSession(notify func(orchestrator.Update)) (*orchestrator.Session, *zap.Logger, error) {
	logger := zap.NewNop()
	if viper.GetBool("verbose") {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
		logger = l
	}

	// no client timeout: variant generation can run for minutes
	client := orchestrator.NewAPIClient(viper.GetString("server"), nil)
	gen, err := orchestrator.NewGenerator(client, viper.GetString("strategy"))
	if err != nil {
		return nil, nil, err
	}

	opts := []orchestrator.SessionOption{orchestrator.WithSessionLogger(logger)}
	if notify != nil {
		opts = append(opts, orchestrator.WithNotify(notify))
	}
	return orchestrator.NewSession(gen, opts...), logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
