// Package guard flips the service into test mode when imported. Test
// packages that boot runtime components blank-import it so configured
// side effects stay off under go test.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AEGIS_TEST_MODE") == "" {
			_ = os.Setenv("AEGIS_TEST_MODE", "1")
		}
	})
}
