package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/TheJagStudio/Family-Fued/internal/engine"
	"github.com/TheJagStudio/Family-Fued/internal/host"
	"github.com/TheJagStudio/Family-Fued/internal/peer"
	"github.com/TheJagStudio/Family-Fued/internal/quiz"
	"github.com/spf13/cobra"
)

func newHostCmd(cfg *Config) *cobra.Command {
	var quizPath string

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a game: claim a room code and control the board.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cfg.verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			transport := peer.NewRelayTransport(cfg.relayURL, log)
			m, err := host.Start(ctx, transport, log)
			if err != nil {
				return fmt.Errorf("session start failed: %w", err)
			}
			defer m.Close()

			fmt.Printf("ROOM CODE: %s\n", m.RoomCode())
			fmt.Printf("join QR:   %s/join/%s\n", strings.Replace(cfg.relayURL, "ws", "http", 1), m.RoomCode())

			if quizPath != "" {
				if err := loadQuiz(m, quizPath); err != nil {
					fmt.Printf("quiz not loaded: %v\n", err)
				}
			}

			runHostConsole(m)
			return nil
		},
	}

	cmd.Flags().StringVarP(&quizPath, "quiz", "q", "", "quiz JSON file to preload")
	return cmd
}

func loadQuiz(m *host.Manager, path string) error {
	title, questions, err := quiz.LoadFile(path)
	if err != nil {
		return err
	}
	if err := m.Apply(engine.Command{Type: engine.CmdLoadQuestions, Questions: questions}); err != nil {
		return err
	}
	if title != "" {
		fmt.Printf("loaded %q (%d questions)\n", title, len(questions))
	} else {
		fmt.Printf("loaded %d questions\n", len(questions))
	}
	return nil
}

const hostHelp = `commands:
  load <file>   load a quiz JSON file
  start         start the game
  reveal <n>    flip answer slot n (1-indexed)
  strike        wrong answer: flash the X, count a strike
  award <team>  give the round pot to team 1-6 and advance
  pass          no points, advance to the next question
  status        show the board as the host sees it
  reset         clear everything (asks for confirmation)
  quit          end the session`

func runHostConsole(m *host.Manager) {
	fmt.Println(hostHelp)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "load":
			if len(fields) < 2 {
				fmt.Println("usage: load <file>")
				continue
			}
			err = loadQuiz(m, fields[1])

		case "start":
			err = m.Apply(engine.Command{Type: engine.CmdStartGame})

		case "reveal":
			var n int
			if len(fields) < 2 {
				fmt.Println("usage: reveal <n>")
				continue
			}
			if n, err = strconv.Atoi(fields[1]); err != nil {
				fmt.Println("usage: reveal <n>")
				continue
			}
			err = m.Apply(engine.Command{Type: engine.CmdRevealAnswer, AnswerIndex: n - 1})

		case "strike":
			err = m.Apply(engine.Command{Type: engine.CmdStrike})

		case "award":
			var team int
			if len(fields) < 2 {
				fmt.Println("usage: award <team 1-6>")
				continue
			}
			if team, err = strconv.Atoi(fields[1]); err != nil {
				fmt.Println("usage: award <team 1-6>")
				continue
			}
			err = m.Apply(engine.Command{Type: engine.CmdAssignPoints, Team: team - 1})

		case "pass":
			err = m.Apply(engine.Command{Type: engine.CmdAssignPoints, Team: engine.NoTeam})

		case "status":
			printHostView(m.View())

		case "reset":
			fmt.Print("reset everything? [y/N] ")
			if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
				fmt.Println("reset cancelled")
				continue
			}
			err = m.Apply(engine.Command{Type: engine.CmdReset})

		case "quit":
			return

		case "help":
			fmt.Println(hostHelp)

		default:
			fmt.Printf("unknown command %q (try help)\n", fields[0])
		}

		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func printHostView(v host.View) {
	fmt.Printf("room %s | %s | %d display(s) connected\n", v.RoomCode, v.State.Status, v.NumClients)
	q, ok := engine.CurrentQuestion(v.State)
	if !ok {
		fmt.Println("no quiz loaded")
		return
	}
	fmt.Printf("Q%d: %s (pot: %d pts, strikes: %d)\n",
		v.State.CurrentQuestionIndex+1, q.Text, v.RoundTotal, v.State.WrongAnswerCount)
	for i, a := range q.Answers {
		mark := " "
		if a.Revealed {
			mark = "x"
		}
		fmt.Printf("  [%s] %d. %s (%d)\n", mark, i+1, a.Text, a.Points)
	}
	fmt.Printf("scores: %v\n", v.State.TeamScores)
}
