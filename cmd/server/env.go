package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// applyEnv fills every flag not given on the command line from
// <prefix><FLAG_NAME>, e.g. -min_players from GAG_MIN_PLAYERS.
func applyEnv(fs *flag.FlagSet, prefix string) error {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || set[f.Name] {
			return
		}
		v, ok := os.LookupEnv(prefix + strings.ToUpper(f.Name))
		if !ok {
			return
		}
		if e := fs.Set(f.Name, strings.TrimSpace(v)); e != nil {
			err = e
		}
	})
	return err
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
