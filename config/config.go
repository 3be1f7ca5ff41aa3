package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

type Config struct {
	Addr       string
	PublicDir  string
	DataDir    string
	Secret     string
	MaxEdits   int
	Expiration bool
	Debug      bool
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	flag.UintVar(&port, "port", 3000, "listen port number")
	flag.StringVar(&cfg.PublicDir, "public-dir", "public", "static root with the survey pages")
	flag.StringVar(&cfg.DataDir, "data-dir", "db", "private root for submission records")
	flag.StringVar(&cfg.Secret, "secret", os.Getenv("SECRET"), "key for session cookie signatures (or env SECRET)")
	flag.IntVar(&cfg.MaxEdits, "max-edits", 5, "max edits per submission, 0 for unlimited")
	flag.BoolVar(&cfg.Expiration, "expiration", true, "enforce survey page mtime expiry")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))

	if cfg.Secret == "" {
		err = errors.New("missing parameter -secret (or env SECRET)")
		return
	}

	err = checkRoots(&cfg)
	return
}

// checkRoots resolves both roots and rejects a data root that is equal
// to or nested inside the public root (or the other way around): records
// must never be reachable through the static file surface.
func checkRoots(cfg *Config) error {
	public, err := filepath.Abs(cfg.PublicDir)
	if err != nil {
		return fmt.Errorf("config.public_dir: %w", err)
	}
	data, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("config.data_dir: %w", err)
	}
	cfg.PublicDir = public
	cfg.DataDir = data

	if data == public || within(data, public) || within(public, data) {
		return errors.New("data-dir can't be equal to or reside in public-dir (or vice versa)")
	}
	return nil
}

func within(dir, root string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
