package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/url"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/GoCodeAlone/wpadmin/install"
	"github.com/GoCodeAlone/wpadmin/internal/version"
	"github.com/GoCodeAlone/wpadmin/pluginsapi"
	"github.com/GoCodeAlone/wpadmin/server/api"
	"github.com/GoCodeAlone/wpadmin/update"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

var plainText = bluemonday.StrictPolicy()

// stripTags turns directory HTML such as author links into plain text.
func stripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintln(w, labelStyle.Render(label)+" "+value)
}

func statusText(res install.Result) string {
	switch res.Status {
	case install.StatusInstall:
		return "not installed"
	case install.StatusUpdateAvailable:
		return warnStyle.Render("update available")
	case install.StatusNewerInstalled:
		return warnStyle.Render("newer installed (" + res.Version + ")")
	case install.StatusLatestInstalled:
		return okStyle.Render("latest installed")
	}
	return string(res.Status)
}

// --- version ---

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "wpadmin %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.BuildDate)
			return nil
		},
	}
}

// --- status ---

func newStatusCommand(c *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var result struct {
				Status  string `json:"status"`
				Version string `json:"version"`
			}
			if err := c.get("/api/status", &result); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status := okStyle.Render(result.Status)
			if result.Status != "ok" {
				status = warnStyle.Render(result.Status)
			}
			field(out, "status", status)
			field(out, "version", result.Version)
			return nil
		},
	}
}

// --- login ---

func newLoginCommand(c *Client) *cobra.Command {
	var user, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print a token",
		Long:  `Sign in and print a token. Without --password the password is read from stdin.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				if password, err = readLine(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			body, err := json.Marshal(map[string]string{"username": user, "password": password})
			if err != nil {
				return err
			}
			var resp struct {
				Token string `json:"token"`
			}
			if err := c.post("/api/auth/login", bytes.NewReader(body), &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export WPADMIN_TOKEN=%s\n", resp.Token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "admin", "user name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

// --- search ---

func newSearchCommand(c *Client) *cobra.Command {
	var searchType string
	var page int
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search the plugin directory",
		Example: `  wpadmin search spam
  wpadmin search --type tag widgets
  wpadmin search --type author automattic`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := "search"
			switch searchType {
			case "term":
			case "tag", "author":
				key = searchType
			default:
				return fmt.Errorf("unknown search type %q: want term, tag or author", searchType)
			}
			q := url.Values{key: {strings.Join(args, " ")}}
			if page > 1 {
				q.Set("page", fmt.Sprint(page))
			}
			var result api.PluginPage
			if err := c.get("/api/plugins?"+q.Encode(), &result); err != nil {
				return err
			}
			return printPlugins(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&searchType, "type", "t", "term", "search by term, tag or author")
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	return cmd
}

func printPlugins(w io.Writer, result api.PluginPage) error {
	if len(result.Plugins) == 0 {
		fmt.Fprintln(w, "no plugins match")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tVERSION\tRATING\tSTATUS")
	for _, p := range result.Plugins {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\n", p.Slug, p.Version, p.Rating, statusText(p.InstallStatus))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "page %d of %d (%s results)\n",
		result.Info.Page, result.Info.Pages, humanize.Comma(int64(result.Info.Results)))
	return nil
}

// --- info ---

func newInfoCommand(c *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "info <slug>",
		Short: "Show plugin details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p pluginsapi.Plugin
			if err := c.get("/api/plugins/"+url.PathEscape(args[0]), &p); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(stripTags(p.Name)))
			field(out, "version", p.Version)
			field(out, "author", stripTags(p.Author))
			field(out, "requires", p.Requires)
			field(out, "tested", p.Tested)
			field(out, "last updated", p.LastUpdated)
			if p.Downloaded > 0 {
				field(out, "downloaded", humanize.Comma(int64(p.Downloaded)))
			}
			if p.NumRatings > 0 {
				field(out, "rating", fmt.Sprintf("%.0f%% of %s ratings", p.Rating, humanize.Comma(int64(p.NumRatings))))
			}
			field(out, "homepage", p.Homepage)
			return nil
		},
	}
}

// --- install-status ---

func newInstallStatusCommand(c *Client) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "install-status <slug>",
		Short: "Show how a directory plugin relates to this site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/plugins/" + url.PathEscape(args[0]) + "/status"
			if from != "" {
				path += "?" + url.Values{"from": {from}}.Encode()
			}
			var res install.Result
			if err := c.get(path, &res); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			field(out, "status", statusText(res))
			field(out, "action", res.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "return context appended to the action URL")
	return cmd
}

// --- tags ---

func newTagsCommand(c *Client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List popular directory tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var tags pluginsapi.Tags
			if err := c.get("/api/tags", &tags); err != nil {
				return err
			}
			sort.SliceStable(tags, func(i, j int) bool { return tags[i].Count > tags[j].Count })
			if limit > 0 && len(tags) > limit {
				tags = tags[:limit]
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tPLUGINS")
			for _, t := range tags {
				fmt.Fprintf(tw, "%s\t%s\n", t.Name, humanize.Comma(int64(t.Count)))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum tags to show (0 for all)")
	return cmd
}

// --- updates ---

func newUpdatesCommand(c *Client) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "updates",
		Short: "List available plugin updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list update.List
			var err error
			if refresh {
				err = c.post("/api/updates/refresh", nil, &list)
			} else {
				err = c.get("/api/updates", &list)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !list.LastChecked.IsZero() {
				field(out, "last checked", humanize.Time(list.LastChecked))
			}
			if len(list.Response) == 0 {
				fmt.Fprintln(out, okStyle.Render("all plugins are up to date"))
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PLUGIN\tINSTALLED\tAVAILABLE")
			for _, file := range list.Files() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", file, list.Checked[file], list.Response[file].NewVersion)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "re-run the update check first")
	return cmd
}

// --- hash-password ---

func newHashPasswordCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash for auth.users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if password == "" {
				return fmt.Errorf("empty password")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
