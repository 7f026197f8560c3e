package batch

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dropaudit/internal/normalize"
)

const (
	addrA = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"
	addrB = "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"
)

func newProcessor(maxFiles int) *Processor {
	return NewProcessor(normalize.New(nil), maxFiles)
}

func TestProcess_EmptyBatchRejected(t *testing.T) {
	_, err := newProcessor(0).Process(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoFiles))
}

func TestProcess_TooManyFilesRejected(t *testing.T) {
	files := make([]File, 101)
	for i := range files {
		files[i] = File{Name: fmt.Sprintf("f%d.txt", i), Data: []byte("x")}
	}
	_, err := newProcessor(0).Process(context.Background(), files)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrTooManyFiles))
}

func TestProcess_ExactlyAtLimitAccepted(t *testing.T) {
	files := make([]File, 100)
	for i := range files {
		files[i] = File{Name: fmt.Sprintf("f%d.txt", i), Data: []byte(addrA)}
	}
	res, err := newProcessor(0).Process(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 100, res.FilesProcessed)
	assert.Equal(t, 100, res.FilesWithAddresses)
	// Same address in every file: the union holds it once.
	assert.Equal(t, []string{addrA}, res.Addresses)
}

func TestProcess_CrossFileDedup(t *testing.T) {
	files := []File{
		{Name: "a.txt", Data: []byte(addrA + "\n" + addrB)},
		{Name: "b.csv", Data: []byte(addrB + ",note")},
		{Name: "c.txt", Data: []byte("no addresses here")},
	}
	res, err := newProcessor(0).Process(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, []string{addrA, addrB}, res.Addresses)
	assert.Equal(t, 3, res.FilesProcessed)
	assert.Equal(t, 2, res.FilesWithAddresses)
}

func TestProcess_UnreadableFileSkipped(t *testing.T) {
	files := []File{
		{Name: "bad.txt", Err: eris.New("multipart read failed")},
		{Name: "good.txt", Data: []byte(addrA)},
	}
	res, err := newProcessor(0).Process(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 1, res.FilesProcessed)
	assert.Equal(t, 1, res.FilesWithAddresses)
	assert.Equal(t, []string{addrA}, res.Addresses)
}

func TestProcess_CustomLimit(t *testing.T) {
	p := newProcessor(2)
	files := []File{
		{Name: "a.txt", Data: []byte(addrA)},
		{Name: "b.txt", Data: []byte(addrB)},
		{Name: "c.txt", Data: []byte(addrA)},
	}
	_, err := p.Process(context.Background(), files)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrTooManyFiles))
}
