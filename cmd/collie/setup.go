package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/collie/internal/adapter"
	"github.com/mmcdole/collie/internal/adapter/source"
	"github.com/mmcdole/collie/internal/domain"
	"github.com/mmcdole/collie/internal/tui/styles"
)

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

// verifyTimeout bounds the session check during setup
const verifyTimeout = 15 * time.Second

// runSetupFlow prompts for the server URL and session cookie, verifies them
// and saves the config.
func runSetupFlow(cfg *adapter.Config, configFile string, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to collie!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		serverURL, err := prompt(reader, "Server URL", cfg.Server.URL)
		if err != nil {
			return err
		}
		if serverURL == "" {
			fmt.Println("Server URL cannot be empty. Please try again.")
			continue
		}

		session, err := prompt(reader, "Session cookie", "")
		if err != nil {
			return err
		}

		fmt.Println()
		id, err := verifyWithSpinner(cfg, serverURL, session, logger)
		if err != nil {
			fmt.Printf("\n✗ Could not verify the session: %v\n", err)
			fmt.Println("Please check the URL and cookie and try again.")
			fmt.Println()
			continue
		}

		cfg.Server.URL = serverURL
		cfg.Server.Session = session
		if id != nil && id.Email != "" {
			fmt.Printf("✓ Signed in as %s\n", id.Email)
		} else {
			fmt.Println("✓ Server reachable")
		}
		break
	}

	save := adapter.SaveConfig
	if configFile != "" {
		save = func(c *adapter.Config) error { return adapter.SaveConfigTo(c, configFile) }
	}
	if err := save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run collie again to open the dashboard.")

	return nil
}

// prompt reads one trimmed line, returning def when the input is empty
func prompt(reader *bufio.Reader, label, def string) (string, error) {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	if input = strings.TrimSpace(input); input == "" {
		return def, nil
	}
	return input, nil
}

// verifyWithSpinner checks the session against the server with a visual spinner.
// A server without an identity endpoint is accepted.
func verifyWithSpinner(cfg *adapter.Config, serverURL, session string, logger *slog.Logger) (*domain.Identity, error) {
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	client, err := source.NewClient(&source.SourceConfig{
		URL:               serverURL,
		Session:           session,
		RequestsPerSecond: cfg.Polling.RequestsPerSecond,
		Burst:             cfg.Polling.Burst,
	}, logger)
	if err != nil {
		return nil, err
	}

	// Channel to receive result
	type result struct {
		id  *domain.Identity
		err error
	}
	resultCh := make(chan result, 1)

	go func() {
		id, err := client.Me(ctx)
		resultCh <- result{id, err}
	}()

	frame := 0
	fmt.Printf("\r%s Checking session...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			fmt.Print(clearSpinnerLine)

			var apiErr *domain.APIError
			if errors.As(res.err, &apiErr) && apiErr.StatusCode == 404 {
				return nil, nil
			}
			return res.id, res.err

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Checking session...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return nil, fmt.Errorf("session check timed out")
		}
	}
}
