package cmd

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/arca-vault/arca/genericclioptions"
)

func pipedFdReader(data string) *genericclioptions.TestFdReader {
	fi := genericclioptions.NewMockFileInfo("stdin", int64(len(data)), 0, false, time.Time{})
	return genericclioptions.NewTestFdReader(bytes.NewBufferString(data), 0, fi)
}

func TestCreateOptions_StdinReadsPassword(t *testing.T) {
	streams, _, _, _ := genericclioptions.NewTestIOStreams(pipedFdReader("hunter2-hunter2\n"))

	o := &createOptions{StdioOptions: genericclioptions.StdioOptions{IOStreams: streams, NonInteractive: true}}

	if err := o.Complete(); err != nil {
		t.Fatal(err)
	}

	if err := o.Validate(); err != nil {
		t.Fatal(err)
	}

	if o.password != "hunter2-hunter2" {
		t.Errorf("got password %q", o.password)
	}
}

func TestCreateOptions_ValidateRejectsStdinFlagOnInteractiveInput(t *testing.T) {
	fi := genericclioptions.NewMockFileInfo("stdin", 0, os.ModeCharDevice, false, time.Time{})
	streams, _, _, _ := genericclioptions.NewTestIOStreams(genericclioptions.NewTestFdReader(bytes.NewBufferString(""), 0, fi))

	o := &createOptions{StdioOptions: genericclioptions.StdioOptions{IOStreams: streams, NonInteractive: true}}

	if err := o.Validate(); err == nil {
		t.Fatal("expected validation error for --stdin on a non-piped input")
	}
}
