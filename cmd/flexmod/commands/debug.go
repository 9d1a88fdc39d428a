package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/flexmod/flexmod/internal/config"
	"github.com/flexmod/flexmod/internal/logging"
	"github.com/flexmod/flexmod/internal/marker"
	"github.com/flexmod/flexmod/internal/xpath"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug utilities",
	Long:  `Debug utilities for troubleshooting configuration, xpath expressions and markers.`,
}

var debugConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if output == "text" {
			output = "json"
		}
		return render(cmd, appConfig, nil)
	},
}

var debugPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show system paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := config.GetPaths()
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "FlexMod System Paths:")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Config:   %s\n", paths.Config)
		fmt.Fprintf(w, "  Data:     %s\n", paths.Data)
		fmt.Fprintf(w, "  Cache:    %s\n", paths.Cache)
		fmt.Fprintf(w, "  State:    %s\n", paths.State)
		fmt.Fprintf(w, "  Logs:     %s\n", paths.LogPath())
		if f := logging.GetLogFilePath(); f != "" {
			fmt.Fprintf(w, "  Log file: %s\n", f)
		}
		return nil
	},
}

// XpathMatch is one element selected by debug xpath.
type XpathMatch struct {
	Line  int               `json:"line" yaml:"line"`
	Name  string            `json:"name" yaml:"name"`
	Attrs map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
	Value *string           `json:"value,omitempty" yaml:"value,omitempty"`
}

var debugXpathCmd = &cobra.Command{
	Use:   "xpath <file> <expr>",
	Short: "Show the elements an expression selects in a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		expr, err := xpath.ParseExpr(args[1])
		if err != nil {
			return err
		}
		root, err := xpath.Parse(data)
		if err != nil {
			return err
		}

		nodes := expr.Select(root)
		if expr.IsAttribute() {
			nodes = expr.Carrying(root)
		}
		matches := []XpathMatch{}
		for _, n := range nodes {
			m := XpathMatch{
				Line:  bytes.Count(data[:n.Start], []byte("\n")) + 1,
				Name:  n.Name,
				Attrs: make(map[string]string, len(n.Attrs)),
			}
			for _, a := range n.Attrs {
				m.Attrs[a.Name] = a.Value
			}
			if expr.IsAttribute() {
				v, _ := n.Attr(expr.Attr)
				m.Value = &v
			}
			matches = append(matches, m)
		}

		return render(cmd, matches, func(w io.Writer) {
			if len(matches) == 0 {
				fmt.Fprintln(w, "no match")
			}
			for _, m := range matches {
				if m.Value != nil {
					fmt.Fprintf(w, "%d: <%s> @%s=%q\n", m.Line, m.Name, expr.Attr, *m.Value)
				} else {
					fmt.Fprintf(w, "%d: <%s>\n", m.Line, m.Name)
				}
			}
		})
	},
}

var debugMarkersCmd = &cobra.Command{
	Use:   "markers <file>",
	Short: "List the marker ids found in a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ids := marker.FindStartIDs(marker.StyleFor(args[0]), string(data))
		return render(cmd, ids, func(w io.Writer) {
			for _, id := range ids {
				fmt.Fprintln(w, id)
			}
		})
	},
}

func init() {
	debugCmd.AddCommand(debugConfigCmd)
	debugCmd.AddCommand(debugPathsCmd)
	debugCmd.AddCommand(debugXpathCmd)
	debugCmd.AddCommand(debugMarkersCmd)
}
