package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/traveler/internal/i18n"
	"github.com/zulandar/traveler/internal/store"
)

func newArticleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "article",
		Short: "Manage articles in the SQL store",
	}
	cmd.AddCommand(newArticleAddCmd())
	return cmd
}

func newArticleAddCmd() *cobra.Command {
	var (
		lang     string
		imageURL string
		text     string
		position int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an article",
		Long:  "Adds an article. Articles go out in ascending position order, then in insertion order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !i18n.Supported(lang) {
				return fmt.Errorf("unsupported language %q (use en, ua or ru)", lang)
			}
			if imageURL == "" {
				return fmt.Errorf("--image is required")
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			s, err := a.requireSQL()
			if err != nil {
				return err
			}
			art, err := s.AddArticle(cmd.Context(), store.Article{
				LanguageCode: lang,
				ImageURL:     imageURL,
				Text:         text,
			}, position)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added article %d (%s)\n", art.ID, art.LanguageCode)
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "language code (en, ua, ru)")
	cmd.Flags().StringVar(&imageURL, "image", "", "image URL or platform file id")
	cmd.Flags().StringVar(&text, "text", "", "caption text")
	cmd.Flags().IntVar(&position, "position", 0, "delivery order; lower goes first")
	return cmd
}
