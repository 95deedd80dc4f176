package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allendavis-developer/cg-request/internal/browser"
	"github.com/allendavis-developer/cg-request/internal/logger"
	"github.com/allendavis-developer/cg-request/internal/output"
	"github.com/allendavis-developer/cg-request/internal/refine"
	"github.com/allendavis-developer/cg-request/pkg/pricer"
)

var priceCmd = &cobra.Command{
	Use:   "price <request>",
	Short: "Find what an item sells for",
	Long: `Search a marketplace for an item and narrow the listings down to a
single price through short multiple-choice questions.

The request is free-form: describe the item the way you would to a
person. A search term is generated from it automatically.

Examples:
  cg-request price "PS5 disc edition, boxed"
  cg-request price "iPhone 13 128GB unboxed" --site https://uk.webuy.com
  cg-request price "Nintendo Switch OLED" --no-input -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)

	flags := priceCmd.Flags()

	flags.String("site", "https://uk.webuy.com", "marketplace URL to search")
	flags.String("context", "", "extra detail about the item (condition, expectations)")
	flags.String("sites", "", "also load site configs from a YAML file")
	flags.Bool("static", false, "fetch results over plain HTTP instead of a browser")
	flags.Bool("no-input", false, "skip the question dialogue and output the initial candidates")
	flags.Bool("steps", false, "include the interaction trace in the output")
	flags.Duration("timeout", 60*time.Second, "overall session timeout")

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: groq, openai, openrouter, anthropic, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")

	// Output settings
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")

	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("api_key", flags.Lookup("api-key"))
	_ = viper.BindPFlag("base_url", flags.Lookup("base-url"))
}

func runPrice(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	requestText := args[0]
	site, _ := cmd.Flags().GetString("site")
	itemContext, _ := cmd.Flags().GetString("context")
	static, _ := cmd.Flags().GetBool("static")
	noInput, _ := cmd.Flags().GetBool("no-input")
	showSteps, _ := cmd.Flags().GetBool("steps")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	provider, err := buildProvider()
	if err != nil {
		logError("%v", err)
		return err
	}

	p := pricer.New(pricer.Options{
		Provider: provider,
		Browser:  browser.DefaultConfig(),
		Static:   static,
	})
	defer func() { _ = p.Close() }()

	if err := loadExtraSites(cmd, p); err != nil {
		logError("%v", err)
		return err
	}

	sessionCtx, cancelSession := context.WithTimeout(ctx, timeout)
	defer cancelSession()

	logInfo("Searching for: %s", requestText)
	session, err := p.Start(sessionCtx, pricer.Request{
		Text:    requestText,
		Context: itemContext,
		SiteURL: site,
	})
	if err != nil {
		logError("%v", err)
		return err
	}

	if !noInput {
		if err := runDialogue(sessionCtx, session); err != nil {
			logError("%v", err)
			return err
		}
	}

	result := session.Result()
	if !showSteps {
		result.Steps = nil
	}
	reportOutcome(result)

	return writeResult(cmd, result)
}

// loadExtraSites registers site configs from the --sites flag file, if any.
func loadExtraSites(cmd *cobra.Command, p *pricer.Pricer) error {
	path, _ := cmd.Flags().GetString("sites")
	if path == "" {
		return nil
	}
	return p.Sites().LoadFile(path)
}

// runDialogue walks the user through the clarification questions on the
// terminal. Entering nothing skips the rest of the dialogue.
func runDialogue(ctx context.Context, session *pricer.Session) error {
	reader := bufio.NewScanner(os.Stdin)

	for !session.Done() {
		q := session.Question()
		if q == nil {
			break
		}

		fmt.Fprintf(os.Stderr, "\n%s\n", q.Text)
		for i, opt := range q.Options {
			fmt.Fprintf(os.Stderr, "  %d) %s\n", i+1, opt.Label)
		}
		fmt.Fprint(os.Stderr, "> ")

		if !reader.Scan() {
			break
		}
		answer := strings.TrimSpace(reader.Text())
		if answer == "" {
			break
		}

		value := resolveAnswer(q, answer)
		if value == "" {
			fmt.Fprintf(os.Stderr, "Pick a number between 1 and %d, or type an option.\n", len(q.Options))
			continue
		}

		if err := session.Answer(ctx, q.ID, value); err != nil {
			return err
		}
		logInfo("%d candidates remain", len(session.Candidates()))
	}
	return nil
}

// resolveAnswer maps terminal input to an option value, accepting either
// the option number or its value or label.
func resolveAnswer(q *refine.Question, answer string) string {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(q.Options) {
			return q.Options[n-1].Value
		}
		return ""
	}
	for _, opt := range q.Options {
		if strings.EqualFold(answer, opt.Value) || strings.EqualFold(answer, opt.Label) {
			return opt.Value
		}
	}
	return ""
}

func reportOutcome(result pricer.Result) {
	if msg := outcomeMessage(result); msg != "" {
		logInfo("\n%s", msg)
	}
}

// outcomeMessage renders the terminal summary line. An empty search result
// reads differently from a dialogue that eliminated every listing.
func outcomeMessage(result pricer.Result) string {
	switch result.Outcome {
	case refine.OutcomeResolved:
		return fmt.Sprintf("Price: %s", result.Price)
	case refine.OutcomeNoMatch:
		if result.Listings == 0 {
			return "The search returned no listings."
		}
		return "No listing matches those answers."
	case refine.OutcomeInconclusive:
		return fmt.Sprintf("%d candidates remain with different prices.", len(result.Candidates))
	}
	return ""
}

func writeResult(cmd *cobra.Command, result pricer.Result) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}

	dest := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		dest = f
	}

	w, err := output.NewWriter(dest, format)
	if err != nil {
		return err
	}
	if err := w.Write(result); err != nil {
		return err
	}
	return w.Flush()
}
