package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "link-resolve",
		Short: "Link-Resolve CLI - Resolve share links into downloadable media",
		Long:  `A command-line interface for resolving platform share links into parsed posts and cached media files.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(platformsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [text]",
	Short: "Resolve the first supported link in a text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		payload := map[string]string{"text": args[0]}
		data, _ := json.Marshal(payload)

		resp, err := http.Post(serverURL+"/api/v1/resolve", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)

		if jsonOutput {
			prettyJSON, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(prettyJSON))
			return
		}

		if platform, ok := result["platform"].(map[string]interface{}); ok {
			fmt.Printf("Platform: %s\n", platform["display_name"])
		}
		if title, ok := result["title"].(string); ok && title != "" {
			fmt.Printf("Title:    %s\n", title)
		}
		if author, ok := result["author"].(map[string]interface{}); ok {
			fmt.Printf("Author:   %s\n", author["name"])
		}
		if contents, ok := result["contents"].([]interface{}); ok {
			fmt.Printf("Contents: %d item(s)\n", len(contents))
			for _, raw := range contents {
				item, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				if errMsg, failed := item["error"].(string); failed {
					fmt.Printf("  [%s] FAILED: %s\n", item["kind"], errMsg)
					continue
				}
				fmt.Printf("  [%s] %s\n", item["kind"], item["payload"])
			}
		}
	},
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List supported platforms",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/platforms")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var list []map[string]interface{}
		json.Unmarshal(body, &list)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME")
		for _, p := range list {
			fmt.Fprintf(w, "%s\t%s\n", p["name"], p["display_name"])
		}
		w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent parse attempts",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		platform, _ := cmd.Flags().GetString("platform")

		url := fmt.Sprintf("%s/api/v1/history?limit=%d", serverURL, limit)
		if platform != "" {
			url += "&platform=" + platform
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var records []map[string]interface{}
		json.Unmarshal(body, &records)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "URL\tPLATFORM\tOUTCOME\tLATENCY\tCREATED")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%v\t%s\t%vms\t%s\n",
				truncate(stringField(r, "url"), 50),
				stringField(r, "platform"),
				r["outcome"],
				r["latency_ms"],
				r["created_at"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show parse statistics",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/history/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Parse Statistics:")
		fmt.Printf("  Total:    %v\n", stats["total"])
		fmt.Printf("  Resolved: %v\n", stats["resolved"])
		fmt.Printf("  No match: %v\n", stats["no_match"])
		fmt.Printf("  Disabled: %v\n", stats["disabled"])
		fmt.Printf("  Failed:   %v\n", stats["failed"])
	},
}

func init() {
	resolveCmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of records")
	historyCmd.Flags().StringP("platform", "p", "", "Filter by platform")
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
