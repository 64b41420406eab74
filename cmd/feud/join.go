package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/TheJagStudio/Family-Fued/internal/board"
	"github.com/TheJagStudio/Family-Fued/internal/client"
	"github.com/TheJagStudio/Family-Fued/internal/engine"
	"github.com/TheJagStudio/Family-Fued/internal/peer"
	"github.com/spf13/cobra"
)

func newJoinCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "join <room-code>",
		Short: "Join a game as the audience display board.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cfg.verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			transport := peer.NewRelayTransport(cfg.relayURL, log)
			m := client.New(transport, log)
			defer m.Close()

			if err := m.Connect(ctx, args[0]); err != nil {
				return fmt.Errorf("could not join room: %w", err)
			}
			fmt.Printf("connected to room %s\n", strings.ToUpper(args[0]))

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-m.Events():
					switch ev.Type {
					case client.EvtStateUpdated:
						printBoard(ev.State)
					case client.EvtWrongShown:
						fmt.Println("\n  XXX  WRONG!  XXX")
					case client.EvtHostDisconnected:
						fmt.Println("host disconnected")
						return nil
					}
				}
			}
		},
	}
}

func printBoard(s engine.State) {
	fmt.Println()
	switch s.Status {
	case engine.StatusIdle, engine.StatusWaiting:
		fmt.Println("FAMILY FEUD — waiting for host to start...")
		return
	case engine.StatusFinished:
		printBoardGrid(s)
		winners, maxScore := board.Winners(s)
		if len(winners) > 1 {
			names := make([]string, len(winners))
			for i, w := range winners {
				names[i] = fmt.Sprintf("%d", w)
			}
			fmt.Printf("DRAW! teams %s at %d points\n", strings.Join(names, " & "), maxScore)
		} else {
			fmt.Printf("WINNER! team %d with %d points\n", winners[0], maxScore)
		}
		return
	}
	printBoardGrid(s)
}

// printBoardGrid renders the two-column answer board the way the projector
// view lays it out: left column takes the extra slot on odd counts.
func printBoardGrid(s engine.State) {
	q, ok := engine.CurrentQuestion(s)
	if !ok {
		return
	}
	fmt.Printf("Q%d: %s\n", s.CurrentQuestionIndex+1, q.Text)

	total := board.SlotCount(s)
	split := board.SplitIndex(total)
	for row := 0; row < split; row++ {
		left := slotText(q, row)
		right := ""
		if ri := split + row; ri < total {
			right = slotText(q, ri)
		}
		fmt.Printf("  %-30s %s\n", left, right)
	}

	fmt.Printf("strikes: %s\n", strings.Repeat("X ", s.WrongAnswerCount))
	for i, score := range s.TeamScores {
		fmt.Printf("  team %d: %d", i+1, score)
	}
	fmt.Println()
}

func slotText(q engine.Question, i int) string {
	if i >= len(q.Answers) {
		return fmt.Sprintf("%2d. ----------", i+1)
	}
	a := q.Answers[i]
	if !a.Revealed {
		return fmt.Sprintf("%2d. __________", i+1)
	}
	return fmt.Sprintf("%2d. %s (%d)", i+1, a.Text, a.Points)
}
