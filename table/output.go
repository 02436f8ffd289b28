package table

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/carbocation/mykrobe2csv"
)

// Output is a destination that only becomes visible once Commit succeeds.
// Abort discards everything written so far. Either may be called after the
// other has run; the second call is a nop.
type Output interface {
	io.Writer
	Commit() error
	Abort() error
}

// Create opens path for all-or-nothing writing. Local paths are staged in a
// temporary file next to the destination and renamed into place on Commit.
// gs:// paths are streamed to Google Storage and only finalized on Commit.
// Failures wrap mykrobe2csv.ErrOutputUnwritable.
func Create(ctx context.Context, path string, client *storage.Client) (Output, error) {
	var out Output
	var err error
	if mykrobe2csv.IsGoogleStoragePath(path) {
		out, err = createGoogleStorage(ctx, path, client)
	} else {
		out, err = createLocal(path)
	}
	if err != nil {
		return nil, err
	}

	return out, nil
}

func unwritable(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", mykrobe2csv.ErrOutputUnwritable, path, err)
}

type localOutput struct {
	path string
	tmp  *os.File
	done bool
}

func createLocal(path string) (*localOutput, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, unwritable(path, err)
	}

	return &localOutput{path: path, tmp: tmp}, nil
}

func (o *localOutput) Write(p []byte) (int, error) {
	n, err := o.tmp.Write(p)
	if err != nil {
		return n, unwritable(o.path, err)
	}
	return n, nil
}

func (o *localOutput) Commit() error {
	if o.done {
		return nil
	}
	o.done = true

	if err := o.tmp.Close(); err != nil {
		os.Remove(o.tmp.Name())
		return unwritable(o.path, err)
	}

	// CreateTemp uses 0600; match what os.Create would have produced.
	if err := os.Chmod(o.tmp.Name(), 0644); err != nil {
		os.Remove(o.tmp.Name())
		return unwritable(o.path, err)
	}

	if err := os.Rename(o.tmp.Name(), o.path); err != nil {
		os.Remove(o.tmp.Name())
		return unwritable(o.path, err)
	}

	return nil
}

func (o *localOutput) Abort() error {
	if o.done {
		return nil
	}
	o.done = true

	o.tmp.Close()
	return os.Remove(o.tmp.Name())
}

type googleStorageOutput struct {
	path   string
	w      *storage.Writer
	cancel context.CancelFunc
	done   bool
}

func createGoogleStorage(ctx context.Context, path string, client *storage.Client) (*googleStorageOutput, error) {
	if client == nil {
		return nil, unwritable(path, fmt.Errorf("no Google Storage client was configured"))
	}

	bucketName, objectName, err := mykrobe2csv.SplitGoogleStoragePath(path)
	if err != nil {
		return nil, unwritable(path, err)
	}

	// Cancelling the writer's context before Close abandons the upload.
	ctx, cancel := context.WithCancel(ctx)
	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/csv"

	return &googleStorageOutput{path: path, w: w, cancel: cancel}, nil
}

func (o *googleStorageOutput) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	if err != nil {
		return n, unwritable(o.path, err)
	}
	return n, nil
}

func (o *googleStorageOutput) Commit() error {
	if o.done {
		return nil
	}
	o.done = true
	defer o.cancel()

	if err := o.w.Close(); err != nil {
		return unwritable(o.path, err)
	}

	return nil
}

func (o *googleStorageOutput) Abort() error {
	if o.done {
		return nil
	}
	o.done = true

	o.cancel()
	o.w.Close()
	return nil
}
