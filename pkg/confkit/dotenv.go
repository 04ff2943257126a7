package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads a .env file the first time it is called.
//
// ENV_FILE names the file explicitly. Otherwise the nearest .env found from the
// working directory upwards is loaded.
// Variables already set win unless DOTENV_OVERLOAD=1. NO_DOTENV=1 disables
// loading entirely.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}

	dir, err := os.Getwd()
	if err != nil {
		_ = load(".env")
		return
	}
	if root, ok := FindUp(dir, ".env"); ok {
		_ = load(filepath.Join(root, ".env"))
	}
}
