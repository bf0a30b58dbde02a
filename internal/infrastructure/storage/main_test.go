package storage

import (
	"os"
	"testing"

	"github.com/smilemakc/mcqflow/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithEmbeddedDB(m))
}
