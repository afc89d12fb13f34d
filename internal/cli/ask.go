package geoassist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwiater/geoassist/internal/query"
	"github.com/mwiater/geoassist/internal/tui"
)

// askCmd answers one question, taken from the arguments or from one line of
// stdin. Every answer exits 0, including an empty semantic result.
var askCmd = &cobra.Command{
	Use:   "ask [query...]",
	Short: "Answer a question about the districts or the documentation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		ctx := cmd.Context()
		engine, closeFn, err := newEngine(ctx, cfg, "cli")
		if err != nil {
			return err
		}
		defer closeFn()

		useTUI, _ := cmd.Flags().GetBool("tui")
		if useTUI {
			return tui.Start(ctx, engine, DebugEnabled())
		}

		text := strings.Join(args, " ")
		if strings.TrimSpace(text) == "" {
			text, err = readLine(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read query from stdin: %w", err)
			}
		}

		ans := engine.Answer(ctx, text)
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			for i := range ans.Snippets {
				ans.Snippets[i].Entry.Embedding = nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ans)
		}
		printAnswer(cmd.OutOrStdout(), ans, DebugEnabled())
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("tui", false, "open the interactive prompt")
	askCmd.Flags().Bool("json", false, "print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printAnswer(out io.Writer, ans query.Answer, debug bool) {
	fmt.Fprintln(out, query.FormatText(ans))
	if !debug {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, mutedStyle.Render("intent: "+ans.Intent))
	if ans.Notice != "" {
		fmt.Fprintln(out, mutedStyle.Render("notice: "+ans.Notice))
	}
	for _, u := range ans.Urban {
		mark := failMark("✗")
		if u.Suitable() {
			mark = okMark("✓")
		}
		fmt.Fprintf(out, "%s %s\n", mark, u.String())
	}
}
