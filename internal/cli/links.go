package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lotto-crawler/internal/fetch"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/logx"
	"lotto-crawler/internal/navigate"
	"lotto-crawler/internal/parse"
)

// linksCmd 仅解析一个页面并打印发现的月份链接与候选记录数，用于调试选择器。
func (a *app) linksCmd() *cobra.Command {
	var name, url, file, archive string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Prints the past-month links and draw count found on one page.",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := game.Parse(name)
			if err != nil {
				return err
			}
			if url == "" {
				url = a.cfg.URLFor(v)
			}
			var body []byte
			if file != "" {
				body, err = fetch.ReadFile(file)
			} else {
				var src fetch.Source
				if src, err = a.source(archive); err == nil {
					body, err = src.Get(cmd.Context(), url)
				}
			}
			if err != nil {
				return err
			}
			doc, err := parse.Load(body)
			if err != nil {
				return err
			}
			cands := parse.New(a.rules).ParseDocument(doc, v, url)
			links := navigate.DiscoverDocument(doc, url)

			t := a.table()
			t.AppendHeader(table.Row{"#", "Label", "URL"})
			for i, l := range links {
				t.AppendRow(table.Row{i + 1, l.Label, l.URL})
			}
			t.AppendFooter(table.Row{"", "draws on page", fmt.Sprint(len(cands))})
			t.Render()
			if len(links) == 0 {
				logx.Warnf("未发现月份链接，请检查页面结构或 rules.yaml")
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&name, "game", "g", string(game.Lotto649), "game whose page is inspected")
	fl.StringVar(&url, "url", "", "page url (defaults to the game's results page)")
	fl.StringVar(&file, "file", "", "saved page to inspect instead of fetching")
	fl.StringVar(&archive, "archive", "", "directory of saved pages used instead of the network")
	return cmd
}
