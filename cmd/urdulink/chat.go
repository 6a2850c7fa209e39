package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/urdu-link/internal/ai"
)

func chatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with search-grounded answers (empty line or /quit to exit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.requireService(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			in := bufio.NewScanner(cmd.InOrStdin())
			var history []ai.Message
			for {
				fmt.Fprint(out, infof("> "))
				if !in.Scan() {
					return in.Err()
				}
				msg := strings.TrimSpace(in.Text())
				if msg == "" || msg == "/quit" {
					return nil
				}
				reply, err := svc.Chat(cmd.Context(), history, msg)
				if err != nil {
					fmt.Fprintln(out, errorf("%v", err))
					continue
				}
				fmt.Fprintln(out, reply.Text)
				for _, src := range reply.Sources {
					fmt.Fprintln(out, infof("  [%s] %s", src.Title, src.URI))
				}
				history = append(history,
					ai.Message{Role: "user", Text: msg},
					ai.Message{Role: "model", Text: reply.Text},
				)
			}
		},
	}
}

func askCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Quick answer from the lightweight model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.requireService(cmd.Context())
			if err != nil {
				return err
			}
			text, err := svc.FastResponse(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
