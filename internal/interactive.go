package internal

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/ansuz/internal/index"
)

// AskInteractive indexes the vault and reads questions from stdin until
// EOF or "quit". "stats" prints index statistics instead of answering.
func AskInteractive(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := index.Sync(rt.db, rt.store, rt.cfg.Search.PreviewLength, rt.logger); err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	fmt.Println("Ansuz — ask questions about your vault.")
	fmt.Println("Type 'quit' to exit, 'stats' for statistics.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nQuestion: ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(question) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		case "stats":
			docs, tags, err := rt.svc.Stats()
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("%d documents, %d tags indexed\n", docs, tags)
			continue
		}

		answer, hits := rt.svc.Ask(ctx, question)
		fmt.Printf("\n%s\n", answer)
		for _, h := range hits {
			fmt.Printf("  - %s (%s)\n", h.Path, h.Kind())
		}
	}
	return scanner.Err()
}
