package bash

import "testing"

func TestIsMultipleCommandsSemicolonSeparates(t *testing.T) {
	// SPEC_FULL.md §8: "echo a && echo b; echo c" is two top-level
	// commands separated by `;`; `&&` within a single command is
	// preserved and produces one execution.
	if !IsMultipleCommands("echo a && echo b; echo c") {
		t.Fatal("expected the `;`-separated command to be rejected as multiple")
	}
}

func TestIsMultipleCommandsAndAndIsOneCommand(t *testing.T) {
	if IsMultipleCommands("echo a && echo b") {
		t.Fatal("a single && chain must count as one top-level command")
	}
}

func TestIsMultipleCommandsPipelineIsOne(t *testing.T) {
	if IsMultipleCommands("cat file.txt | grep foo | sort") {
		t.Fatal("a pipeline must count as one top-level command")
	}
}

func TestIsMultipleCommandsSingleCommand(t *testing.T) {
	if IsMultipleCommands("ls -la") {
		t.Fatal("a bare single command must not be rejected")
	}
}

func TestIsMultipleCommandsLeadingCommentNotCounted(t *testing.T) {
	if IsMultipleCommands("# a note\nls -la") {
		t.Fatal("a comment line before the first command must not count as a command")
	}
}

func TestIsMultipleCommandsTwoNewlineSeparatedCommands(t *testing.T) {
	if !IsMultipleCommands("ls -la\npwd") {
		t.Fatal("two bare-newline-separated commands must be rejected as multiple")
	}
}

func TestIsMultipleCommandsQuotedSemicolonPreserved(t *testing.T) {
	if IsMultipleCommands(`echo "a; b"`) {
		t.Fatal("a semicolon inside a double-quoted string must not split the command")
	}
	if IsMultipleCommands(`echo 'a; b'`) {
		t.Fatal("a semicolon inside a single-quoted string must not split the command")
	}
}

func TestIsMultipleCommandsLineContinuationIsOne(t *testing.T) {
	if IsMultipleCommands("echo a \\\n  b") {
		t.Fatal("a backslash line continuation must count as one command")
	}
}

func TestIsMultipleCommandsHeredocBodyNotSplit(t *testing.T) {
	cmd := "cat <<EOF\nline one; line two\nEOF"
	if IsMultipleCommands(cmd) {
		t.Fatal("semicolons inside a heredoc body must not split the command")
	}
}

func TestIsMultipleCommandsEmptyIsNotMultiple(t *testing.T) {
	if IsMultipleCommands("") {
		t.Fatal("an empty command is not multiple commands")
	}
	if IsMultipleCommands("   \n  ") {
		t.Fatal("a whitespace-only command is not multiple commands")
	}
}
