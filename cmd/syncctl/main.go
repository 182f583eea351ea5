package main

import (
	"flag"
	"fmt"
	"os"

	"syncbox/internal/client"
)

const usage = `Usage: syncctl [flags] <command> [args]

Commands:
  text <content>    share a text snippet
  send <file>       upload a file
  shorten <url>     shorten a URL
  history           list recent texts and files
  urls              list shortened URLs
  clear             clear all history

Flags:
  -server URL       server address (default http://localhost:5000, or SYNC_SERVER)
  -password P       access password (default from SYNC_PASSWORD)
`

func main() {
	server := flag.String("server", envOr("SYNC_SERVER", "http://localhost:5000"), "server address")
	password := flag.String("password", os.Getenv("SYNC_PASSWORD"), "access password")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	c, err := client.New(*server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := c.Login(*password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: login failed: %v\n", err)
		os.Exit(1)
	}

	if err := run(c, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *client.Client, command string, args []string) error {
	switch command {
	case "text":
		if len(args) != 1 {
			return fmt.Errorf("usage: syncctl text <content>")
		}
		if err := c.SyncText(args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Text synced")
		return nil

	case "send":
		if len(args) != 1 {
			return fmt.Errorf("usage: syncctl send <file>")
		}
		if err := c.UploadFile(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Uploaded %s\n", args[0])
		return nil

	case "shorten":
		if len(args) != 1 {
			return fmt.Errorf("usage: syncctl shorten <url>")
		}
		shortURL, err := c.ShortenURL(args[0])
		if err != nil {
			return err
		}
		fmt.Println(shortURL)
		return nil

	case "history":
		items, err := c.History()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No history")
			return nil
		}
		for _, item := range items {
			switch item.Type {
			case "file":
				fmt.Printf("%s  file  %s (%d bytes)\n",
					item.Timestamp.Format("2006-01-02 15:04"), item.OriginalName, item.Size)
			default:
				fmt.Printf("%s  text  %s\n",
					item.Timestamp.Format("2006-01-02 15:04"), item.Content)
			}
		}
		return nil

	case "urls":
		items, err := c.URLHistory()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No shortened URLs")
			return nil
		}
		for _, item := range items {
			fmt.Printf("%s  %s -> %s (%d clicks)\n",
				item.Timestamp.Format("2006-01-02 15:04"), item.ShortURL, item.LongURL, item.Clicks)
		}
		return nil

	case "clear":
		if err := c.ClearHistory(); err != nil {
			return err
		}
		fmt.Println("✓ History cleared")
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
