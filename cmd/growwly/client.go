package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"growwly/internal/client"
	"growwly/internal/dayset"
	"growwly/internal/logger"
	"growwly/internal/models"
	"growwly/internal/realtime"
	"growwly/internal/stats"
)

var (
	loginEmail string
	statsRange string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print your streaks and period statistics",
	RunE:  runStats,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join the community chat",
	Long: `Reads lines from stdin and posts them to the community chat.

Commands:
  /delete <id>   delete one of your messages
  /quit          leave`,
	RunE: runChat,
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, chatCmd} {
		c.Flags().StringVar(&loginEmail, "email", "", "log in with this email (password from GROWWLY_PASSWORD)")
	}
	statsCmd.Flags().StringVar(&statsRange, "range", "month", "period range: week, month or year")
}

// connect returns an authenticated client, logging in when --email is set
// and reusing client.session_token otherwise.
func connect(ctx context.Context, out io.Writer) (*client.Client, models.Profile, error) {
	c := client.New(cfg.Client.ServerURL, cfg.Client.SessionToken)
	if loginEmail != "" {
		user, err := c.Login(ctx, loginEmail, os.Getenv("GROWWLY_PASSWORD"))
		if err != nil {
			return nil, models.Profile{}, fmt.Errorf("login: %w", err)
		}
		fmt.Fprintf(out, "logged in as %s (set GROWWLY_SESSION_TOKEN=%s to skip login)\n", user.Email, c.Token)
		return c, user, nil
	}
	if c.Token == "" {
		return nil, models.Profile{}, errors.New("not logged in: pass --email or set client.session_token")
	}
	user, err := c.Me(ctx)
	if err != nil {
		return nil, models.Profile{}, fmt.Errorf("session: %w", err)
	}
	return c, user, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rng, err := stats.ParseRange(statsRange)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	c, user, err := connect(ctx, out)
	if err != nil {
		return err
	}

	view := client.NewStatsView(c, user.ID, dayset.NewCalendar(loc))
	snap, err := view.Refresh(ctx, rng)
	if err != nil {
		return err
	}
	printStats(out, user, snap)
	return nil
}

func printStats(w io.Writer, user models.Profile, s client.StatsSnapshot) {
	name := user.FullName
	if name == "" {
		name = user.Email
	}
	sum := s.Summary
	fmt.Fprintf(w, "%s, as of %s\n\n", name, s.Today)
	fmt.Fprintf(w, "  entries         %d (%d public, %d private)\n", sum.Total, sum.Public, sum.Private)
	fmt.Fprintf(w, "  current streak  %d days\n", sum.CurrentStreak)
	fmt.Fprintf(w, "  longest streak  %d days\n", sum.LongestStreak)
	fmt.Fprintf(w, "  this week       %d %s\n", sum.ThisWeek, change(sum.WeekChange))
	fmt.Fprintf(w, "  this month      %d %s\n", sum.ThisMonth, change(sum.MonthChange))
	fmt.Fprintf(w, "  avg per week    %.1f\n\n", sum.AveragePerWeek)

	fmt.Fprintf(w, "  last %s:\n", s.Range)
	if len(s.Period.Buckets) == 0 {
		fmt.Fprintln(w, "    no entries")
	}
	for _, b := range s.Period.Buckets {
		fmt.Fprintf(w, "    %s  %s%s\n", b.Day, strings.Repeat("#", b.Public), strings.Repeat(".", b.Private))
	}
}

func change(c stats.Change) string {
	if c.Pct == 0 {
		return ""
	}
	sign := "+"
	if !c.Positive {
		sign = ""
	}
	return fmt.Sprintf("(%s%d%% vs previous)", sign, c.Pct)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	c, user, err := connect(ctx, out)
	if err != nil {
		return err
	}

	session := client.NewChatSession(c, user)
	if err := session.Refresh(ctx); err != nil {
		return fmt.Errorf("load chat: %w", err)
	}
	render := func() { printChat(out, session) }
	render()
	session.OnChange(render)

	events, err := c.Subscriber(realtime.TableChat).Subscribe(ctx)
	if err != nil {
		fmt.Fprintln(out, "! realtime unavailable, messages from others appear after your next send")
		logger.Warn("chat subscribe", "error", err)
	} else {
		go session.Listen(ctx, events)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := chatCommand(ctx, out, session, line); quit {
				return nil
			}
		}
	}
}

// chatCommand handles one input line and reports whether to leave.
func chatCommand(ctx context.Context, out io.Writer, s *client.ChatSession, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "/quit":
		return true
	case strings.HasPrefix(line, "/delete "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
		if err := s.Delete(ctx, id); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if _, err := s.Send(sendCtx, line); err != nil {
		fmt.Fprintf(out, "! %v\n! not sent, kept as: %s\n", err, s.Input())
		if client.IsTransient(err) {
			fmt.Fprintln(out, "! retry by sending it again")
		}
	}
	return false
}

func printChat(w io.Writer, s *client.ChatSession) {
	fmt.Fprintln(w, "----")
	for _, m := range s.Visible() {
		author := m.UserID
		if m.Author != nil && m.Author.FullName != "" {
			author = m.Author.FullName
		}
		status := m.ID
		if s.IsPending(m) {
			status = "sending"
		}
		fmt.Fprintf(w, "[%s] %s %s: %s\n", status, m.CreatedAt.Local().Format("15:04"), author, m.Message)
	}
}
