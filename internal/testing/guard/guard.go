package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TAVOLA_TEST_MODE") == "" {
			_ = os.Setenv("TAVOLA_TEST_MODE", "1")
		}
	})
}
