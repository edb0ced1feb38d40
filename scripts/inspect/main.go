package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mahaj/teamsync/pkg/model"
	"github.com/mahaj/teamsync/pkg/store"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const previewLength = 48

func main() {
	path := flag.String("path", "./data/badger", "badger directory")
	team := flag.String("team", "", "only show this team")
	flag.Parse()

	// read only, even while a gateway holds the lock
	db, err := badger.Open(badger.DefaultOptions(*path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	s := store.NewBadgerStore(db, nil, logs.GetLoggerFromString("WARN"))
	n, err := dump(context.Background(), os.Stdout, s, *team)
	if err != nil {
		log.Fatalf("Failed to walk messages: %v", err)
	}
	fmt.Printf("\n%d messages\n", n)
}

func dump(ctx context.Context, w io.Writer, s *store.BadgerStore, team string) (int, error) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Team", "Sender", "Kind", "Message", "Edited", "Reads", "Created"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err := s.Walk(ctx, func(msg model.ChatMessage) error {
		if team != "" && msg.TeamID != team {
			return nil
		}
		count++
		table.Append([]string{
			msg.IDString(),
			msg.TeamID,
			msg.SenderID,
			string(msg.Kind),
			preview(msg.Text),
			strconv.FormatBool(msg.IsEdited),
			strconv.Itoa(len(msg.ReadBy)),
			msg.CreatedAt.Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return count, err
	}
	table.Render()
	return count, nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength-3]) + "..."
}
