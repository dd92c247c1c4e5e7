// Command autodo is the front-end of the autodo automation runtime.
//
// It executes a script — embedded in its own image after the sentinel,
// or named on the command line — and compiles scripts into
// self-contained bundles by appending them to a copy of the
// executable.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"

	"github.com/qgymib/autodo"
)

// engine is the linked script engine, if any. The interpreter is an
// external collaborator; a build without one can still compile
// bundles.
var engine autodo.Engine

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(logiface.LevelInformational),
	).Logger()
}

func newRootCommand() *cobra.Command {
	var compilePath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "autodo [flags] [script]",
		Short: "An easy to use automation tool.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			// An embedded script short-circuits argument handling.
			script, err := autodo.ReadSelfScript()
			if err != nil {
				return err
			}
			if script != nil {
				return runScript(logger, script)
			}

			var scriptPath string
			if len(args) == 1 {
				scriptPath = args[0]
			}

			if scriptPath != "" && compilePath != "" {
				return errors.New("conflict option: script followed by `-c`")
			}
			if scriptPath == "" && compilePath == "" {
				_ = cmd.Usage()
				return errors.New("no operation")
			}

			if compilePath != "" {
				out := outputPath
				if out == "" {
					out = defaultOutputPath(compilePath)
				}
				return compileScript(logger, compilePath, out)
			}

			src, err := os.ReadFile(scriptPath)
			if err != nil {
				return fmt.Errorf("open `%s` failed: %w", scriptPath, err)
			}
			return runScript(logger, src)
		},
	}

	cmd.Flags().StringVarP(&compilePath, "compile", "c", "", "Compile script into a self-contained bundle.")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path for --compile.")
	return cmd
}

func compileScript(logger *logiface.Logger[logiface.Event], src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("open `%s` failed: %w", src, err)
	}
	if err := autodo.WriteBundle(dst, data); err != nil {
		return err
	}
	logger.Info().
		Str("script", src).
		Str("output", dst).
		Log("bundle written")
	return nil
}

func runScript(logger *logiface.Logger[logiface.Event], script []byte) error {
	if engine == nil {
		return autodo.ErrNoEngine
	}
	rt, err := autodo.New(autodo.WithLogger(logger))
	if err != nil {
		return err
	}
	return engine.Run(rt, script)
}

// defaultOutputPath derives the bundle path from the script path by
// stripping the extension, adding .exe on Windows. Elsewhere, a path
// with no extension gets .out appended.
func defaultOutputPath(src string) string {
	ext := filepath.Ext(src)
	if runtime.GOOS == "windows" {
		return strings.TrimSuffix(src, ext) + ".exe"
	}
	if ext == "" {
		return src + ".out"
	}
	return strings.TrimSuffix(src, ext)
}
