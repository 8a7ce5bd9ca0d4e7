package coderun

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSandboxUnavailable  = errors.New("sandbox unavailable")
	ErrUnsupportedLanguage = errors.New("unsupported_language")
)

// Program is one execution request: source code plus what to feed on stdin.
type Program struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin,omitempty"`
}

type Output struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
	TimedOut bool   `json:"timedOut"`
}

// Runner executes a program in isolation.
type Runner interface {
	Run(ctx context.Context, p Program) (Output, error)
}

type Limits struct {
	WallTime time.Duration
	MemoryB  int64
	NanoCPUs int64
}

func (l Limits) withDefaults() Limits {
	if l.WallTime <= 0 {
		l.WallTime = 10 * time.Second
	}
	if l.MemoryB == 0 {
		l.MemoryB = 512 * 1024 * 1024
	}
	if l.NanoCPUs == 0 {
		l.NanoCPUs = 1_000_000_000
	}
	return l
}

type languageSpec struct {
	image    string
	fileName string
	// every command but the last is a build step; the last one runs with stdin attached
	cmds [][]string
}

var languages = map[string]languageSpec{
	"python": {
		image:    "python:3.11-slim",
		fileName: "main.py",
		cmds:     [][]string{{"python3", "main.py"}},
	},
	"java": {
		image:    "eclipse-temurin:17-jdk",
		fileName: "Main.java",
		cmds:     [][]string{{"javac", "Main.java"}, {"java", "Main"}},
	},
	"cpp": {
		image:    "gcc:13",
		fileName: "main.cpp",
		cmds:     [][]string{{"g++", "-O2", "-std=c++17", "main.cpp", "-o", "main"}, {"./main"}},
	},
}

func lookupLanguage(lang string) (languageSpec, error) {
	spec, ok := languages[lang]
	if !ok {
		return languageSpec{}, ErrUnsupportedLanguage
	}
	return spec, nil
}
