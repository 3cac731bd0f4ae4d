// Package shell is the interactive line-reading loop around an *nanofs.FsApi.
// It is a thin external collaborator, not part of the filesystem core: line
// reading and argument tokenisation live here, while every
// on-disk consistency decision lives in package nanofs.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/AbhiramYakkali/NanoFS/backend"
	"github.com/AbhiramYakkali/NanoFS/nanofs"
	"github.com/AbhiramYakkali/NanoFS/util"
)

// DiskName is the single file in the current working directory NanoFS
// persists its image to.
const DiskName = "nanofs_disk"

// Prompt is printed before reading each command line.
const Prompt = "nanofs/> "

// maxArgs is the number of whitespace-separated tokens a command line may
// carry, including the command name itself.
const maxArgs = 5

// maxArgLen caps how long a single argument token may be.
const maxArgLen = 248

// Shell drives one FsApi instance from a stream of command lines.
type Shell struct {
	fs      *nanofs.FsApi
	out     io.Writer
	log     *logrus.Logger
	verbose bool
}

// New builds a Shell over fs, writing command output to out. When verbose
// is true, a structured status line is logged after every operation.
func New(fs *nanofs.FsApi, out io.Writer, verbose bool) *Shell {
	log := logrus.New()
	log.SetOutput(out)
	if !verbose {
		log.SetLevel(logrus.WarnLevel)
	}
	return &Shell{fs: fs, out: out, log: log, verbose: verbose}
}

// Run reads command lines from in until EOF or an "exit" command, printing
// the prompt before each one to prompt (nil disables prompting, useful for
// piping in a script of commands).
func (s *Shell) Run(in io.Reader, prompt io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		if prompt != nil {
			fmt.Fprint(prompt, Prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if s.dispatch(line) {
			return nil
		}
	}
}

// dispatch runs one command line and reports whether the shell should exit.
func (s *Shell) dispatch(line string) (exit bool) {
	fields := strings.Fields(line)
	if len(fields) > maxArgs {
		fields = fields[:maxArgs]
	}
	for i, f := range fields {
		if len(f) > maxArgLen {
			fields[i] = f[:maxArgLen]
		}
	}

	cmd, args := fields[0], fields[1:]
	var err error
	switch cmd {
	case "exit":
		return true
	case "init":
		err = s.cmdInit()
	case "ls":
		err = s.cmdLs()
	case "cd":
		err = s.requireArg(args, "cd", func(a []string) error { return s.fs.Cd(a[0]) })
	case "create":
		err = s.requireArg(args, "create", func(a []string) error { return s.fs.Create(a[0]) })
	case "mkdir":
		err = s.requireArg(args, "mkdir", func(a []string) error { return s.fs.Mkdir(a[0]) })
	case "write":
		err = s.cmdWrite(args)
	case "read":
		err = s.cmdRead(args)
	case "rm":
		err = s.requireArg(args, "rm", func(a []string) error { return s.fs.Rm(a[0]) })
	case "open":
		err = s.cmdOpen(args)
	case "save":
		err = s.cmdSave(args)
	case "dump":
		err = s.cmdDump(args)
	default:
		fmt.Fprintf(s.out, "unrecognized command: %s\n", cmd)
		return false
	}

	if err != nil {
		fmt.Fprintf(s.out, "error: %s\n", err)
	}
	s.log.WithFields(logrus.Fields{"op": cmd, "args": args, "ok": err == nil}).Info("command")
	return false
}

func (s *Shell) requireArg(args []string, name string, op func([]string) error) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <path>", name)
	}
	return op(args)
}

func (s *Shell) cmdInit() error {
	store, err := backend.Create(DiskName, nanofs.NewLayout(nanofs.DefaultSuperblock()).ImageSize())
	if err != nil {
		return err
	}
	s.fs = nanofs.New(store)
	return s.fs.Init(nanofs.DefaultSuperblock())
}

func (s *Shell) cmdLs() error {
	entries, err := s.fs.Ls()
	if err != nil {
		return err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	fmt.Fprintln(s.out, strings.Join(names, " ")+" ")
	return nil
}

func (s *Shell) cmdWrite(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: write <path> [text]")
	}
	content := ""
	if len(args) > 1 {
		content = strings.Join(args[1:], " ")
	}
	return s.fs.Write(args[0], []byte(content))
}

func (s *Shell) cmdRead(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: read <path>")
	}
	data, err := s.fs.Read(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, string(data))
	return nil
}

func (s *Shell) cmdOpen(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: open <fs_path> <host_path>")
	}
	data, err := s.fs.Open(args[0])
	if err != nil {
		return err
	}
	return os.WriteFile(args[1], data, 0o644)
}

func (s *Shell) cmdSave(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: save <host_path> <fs_path>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading host file %q: %w", args[0], err)
	}
	return s.fs.Save(args[1], data)
}

// cmdDump prints a file's contents as a hex/ASCII dump, the way a student
// poking at the raw image would want to see it rather than as text.
func (s *Shell) cmdDump(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: dump <path>")
	}
	data, err := s.fs.Open(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(s.out, util.DumpByteSlice(data, 16, true, true, false, nil))
	return nil
}
