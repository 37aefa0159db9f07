// Command registryctl is a thin HTTP client over the registry's
// control surface: every subcommand issues one request and
// prints the resulting envelope.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/paularlott/cli"
)

var baseURL string

func main() {
	app := &cli.Command{
		Name:        "registryctl",
		Description: "Administer a running tool registry daemon over its HTTP control surface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "base URL of the registry daemon",
				Value:       "http://localhost:8080",
				Destination: &baseURL,
			},
		},
		Commands: []*cli.Command{
			toolsCommand(),
			callCommand(),
			exportCommand(),
			importCommand(),
			syncCommand(),
			healthCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "registryctl:", err)
		os.Exit(1)
	}
}

func toolsCommand() *cli.Command {
	var origin, category, capability string
	return &cli.Command{
		Name:        "tools",
		Description: "List registered tools",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "origin", Destination: &origin},
			&cli.StringFlag{Name: "category", Destination: &category},
			&cli.StringFlag{Name: "capability", Destination: &capability},
		},
		Run: func(cmd *cli.Command, args []string) error {
			q := fmt.Sprintf("?origin=%s&category=%s&capability=%s", origin, category, capability)
			return getAndPrint("/registry/tools" + q)
		},
	}
}

func callCommand() *cli.Command {
	var toolID, action, paramsJSON string
	return &cli.Command{
		Name:        "call",
		Description: "Invoke one action on one tool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tool", Required: true, Destination: &toolID},
			&cli.StringFlag{Name: "action", Required: true, Destination: &action},
			&cli.StringFlag{Name: "params", Value: "{}", Destination: &paramsJSON},
		},
		Run: func(cmd *cli.Command, args []string) error {
			var params map[string]interface{}
			if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
				return fmt.Errorf("invalid --params JSON: %w", err)
			}
			body, _ := json.Marshal(map[string]interface{}{"params": params})
			return postAndPrint(fmt.Sprintf("/registry/call/%s/%s", toolID, action), body)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:        "export",
		Description: "Download the current configuration document",
		Run: func(cmd *cli.Command, args []string) error {
			return getAndPrint("/registry/export")
		},
	}
}

func importCommand() *cli.Command {
	var path string
	return &cli.Command{
		Name:        "import",
		Description: "Upload a configuration document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Required: true, Destination: &path},
		},
		Run: func(cmd *cli.Command, args []string) error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			writer := multipart.NewWriter(&buf)
			part, err := writer.CreateFormFile("file", filepath.Base(path))
			if err != nil {
				return err
			}
			if _, err := part.Write(data); err != nil {
				return err
			}
			if err := writer.Close(); err != nil {
				return err
			}

			resp, err := http.Post(baseURL+"/registry/import", writer.FormDataContentType(), &buf)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			return printResponse(resp)
		},
	}
}

func syncCommand() *cli.Command {
	var remoteURL, authRef string
	return &cli.Command{
		Name:        "sync",
		Description: "Sync tools from a remote registry",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remote-url", Required: true, Destination: &remoteURL},
			&cli.StringFlag{Name: "auth", Destination: &authRef},
		},
		Run: func(cmd *cli.Command, args []string) error {
			body, _ := json.Marshal(map[string]string{"remote_url": remoteURL, "auth_reference": authRef})
			return postAndPrint("/registry/remote/sync", body)
		},
	}
}

func healthCommand() *cli.Command {
	var toolID string
	return &cli.Command{
		Name:        "health",
		Description: "Show health records",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tool", Destination: &toolID},
		},
		Run: func(cmd *cli.Command, args []string) error {
			if toolID == "" {
				return getAndPrint("/registry/health")
			}
			return getAndPrint(fmt.Sprintf("/registry/tool/%s/health", toolID))
		},
	}
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func getAndPrint(path string) error {
	resp, err := httpClient.Get(baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func postAndPrint(path string, body []byte) error {
	resp, err := httpClient.Post(baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(data))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %s", resp.Status)
	}
	return nil
}
