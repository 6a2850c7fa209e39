package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/urdu-link/internal/ai"
)

func imageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Generate or analyze images",
	}
	cmd.AddCommand(imageGenerateCmd(a), imageAnalyzeCmd(a))
	return cmd
}

func imageGenerateCmd(a *app) *cobra.Command {
	var aspect string
	var out string

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate an image from a text prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.requireService(cmd.Context())
			if err != nil {
				return err
			}
			img, err := svc.GenerateImage(cmd.Context(), strings.Join(args, " "), aspect)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, img.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successf("✓ saved %s (%s, %d bytes)", out, img.MIMEType, len(img.Data)))
			return nil
		},
	}
	cmd.Flags().StringVar(&aspect, "aspect", "1:1", "aspect ratio: "+strings.Join(ai.AspectRatios, "|"))
	cmd.Flags().StringVarP(&out, "out", "o", ai.GeneratedImageName, "output file")
	return cmd
}

func imageAnalyzeCmd(a *app) *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Describe an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, mimeType, err := readMedia(args[0])
			if err != nil {
				return err
			}
			svc, err := a.requireService(cmd.Context())
			if err != nil {
				return err
			}
			text, err := svc.AnalyzeImage(cmd.Context(), data, mimeType, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "question about the image (default: "+ai.DefaultAnalyzePrompt+")")
	return cmd
}

func videoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Analyze videos",
	}
	var prompt string
	analyze := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Describe a short video (sent inline, 20MB max)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, mimeType, err := readMedia(args[0])
			if err != nil {
				return err
			}
			svc, err := a.requireService(cmd.Context())
			if err != nil {
				return err
			}
			text, err := svc.AnalyzeVideo(cmd.Context(), data, mimeType, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	analyze.Flags().StringVarP(&prompt, "prompt", "p", "", "question about the video")
	cmd.AddCommand(analyze)
	return cmd
}

var videoExts = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mpeg": "video/mpeg",
	".avi":  "video/x-msvideo",
}

func readMedia(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	if mt, ok := videoExts[strings.ToLower(filepath.Ext(path))]; ok {
		return data, mt, nil
	}
	return data, http.DetectContentType(data), nil
}
