package config

import "os"

type Config struct {
	Port            string
	LeaderboardFile string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.LeaderboardFile = getenv("LEADERBOARD_FILE", "./leaderboard.json")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
