// Command gojvm loads and runs a single Java class's `public static void
// main(String[])` entry point (spec §6's CLI contract).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/daimatz/gojvm/internal/intern"
	"github.com/daimatz/gojvm/pkg/classloader"
	"github.com/daimatz/gojvm/pkg/engine"
	"github.com/daimatz/gojvm/pkg/nativeregistry"
	"github.com/daimatz/gojvm/pkg/rt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var classPath string

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gojvm <main-class>",
		Short:         "A minimal JVM that loads and runs one class's main method",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], classPath)
		},
	}
	cmd.Flags().StringVarP(&classPath, "classpath", "c", ".", "';'-separated directories to search for user classes")
	return cmd
}

func run(mainClass, cp string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	interner := intern.New()
	source := classloader.New(findJmodPath(), cp)
	area := rt.New(source, interner, log)

	vm := engine.New(area, log)
	vm.Natives = nativeregistry.Bootstrap()
	area.SetClinitInvoker(vm.ClinitInvoker())

	binaryName := strings.TrimSuffix(filepath.Base(mainClass), ".class")
	if err := vm.RunMain(binaryName, os.Args[2:]); err != nil {
		log.Errorw("uncaught error running main class", "class", binaryName, "error", err)
		return fmt.Errorf("gojvm: %w", err)
	}
	return nil
}

func newLogger() (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	if os.Getenv("GOJVM_LOG") == "" {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("gojvm: building logger: %w", err)
	}
	return logger.Sugar(), nil
}

// findJmodPath locates java.base.jmod the same way the teacher's CLI did:
// an explicit env override, then JAVA_HOME, then a glob over common
// install locations. An empty result disables the bootstrap class source
// and leaves only the user classpath, which is enough for classfiles that
// don't reach into java.lang beyond what's already loaded.
func findJmodPath() string {
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
