package config

import (
    "os"
    "strconv"
    "time"
)

// Optional settings fall back to their default when unset or unparsable.

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch os.Getenv(k) {
    case "yes", "YES", "on", "ON":
        return true
    case "no", "NO", "off", "OFF":
        return false
    }
    if b, err := strconv.ParseBool(os.Getenv(k)); err == nil {
        return b
    }
    return d
}

func envInt(k string, d int) int {
    if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
        return dur
    }
    return d
}
