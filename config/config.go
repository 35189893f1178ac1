package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort         string
	DatabaseURL        string
	AdminToken         string
	CacheTTLHours      string
	CacheMaxSize       string
	ColumnAnchorToken  string
	SharedLabMarker    string
	FacultyBaseURL     string
	BrowserRenderHosts string
	CourseTitlesPath   string
	LogLevel           string
}

// SimplifiedRateLimitConfig holds simplified rate limiting configuration
type SimplifiedRateLimitConfig struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	PolitenessDelay   time.Duration `json:"politeness_delay"`
}

// DefaultRateLimitConfig returns default rate limiting configuration for politeness
func DefaultRateLimitConfig() *SimplifiedRateLimitConfig {
	return &SimplifiedRateLimitConfig{
		RequestsPerSecond: 2.0,
		PolitenessDelay:   500 * time.Millisecond,
	}
}

// SimplifiedCacheConfig holds simplified cache configuration
type SimplifiedCacheConfig struct {
	DefaultTTL time.Duration `json:"default_ttl"`
	MaxSize    int           `json:"max_size"`
}

// DefaultCacheConfig returns default cache configuration. Routine documents
// change at most a few times per semester, so cached parses stay valid for a
// month unless invalidated.
func DefaultCacheConfig() *SimplifiedCacheConfig {
	return &SimplifiedCacheConfig{
		DefaultTTL: 30 * 24 * time.Hour,
		MaxSize:    200,
	}
}

// defaultCourseTitles maps course codes to their catalog titles. Unknown codes
// fall back to the code itself at extraction time.
var defaultCourseTitles = map[string]string{
	"CSE112": "Computer Fundamentals",
	"CSE113": "Computer Fundamentals Lab",
	"CSE114": "Introduction to Programming",
	"CSE115": "Introduction to Programming Lab",
	"CSE122": "Discrete Mathematics",
	"CSE132": "Electrical Circuits",
	"CSE212": "Data Structures",
	"CSE213": "Data Structures Lab",
	"CSE222": "Algorithm Design and Analysis",
	"CSE232": "Object Oriented Programming",
	"CSE312": "Database Management Systems",
	"CSE313": "Database Management Systems Lab",
	"MAT101": "Mathematics I",
	"MAT121": "Mathematics II",
	"PHY101": "Physics I",
	"ENG101": "English Fundamentals",
	"GED101": "Bangladesh Studies",
	"STA101": "Statistics and Probability",
}

// GetCacheTTL returns the cache TTL from environment or the 30-day default
func (c *Config) GetCacheTTL() time.Duration {
	if c.CacheTTLHours == "" {
		return 30 * 24 * time.Hour
	}

	hours, err := strconv.Atoi(c.CacheTTLHours)
	if err != nil || hours <= 0 {
		logrus.Warnf("Invalid CACHE_TTL_HOURS value: %s, using default 720 hours", c.CacheTTLHours)
		return 30 * 24 * time.Hour
	}

	return time.Duration(hours) * time.Hour
}

// GetCacheMaxSize returns the in-memory cache capacity from environment or default
func (c *Config) GetCacheMaxSize() int {
	if c.CacheMaxSize == "" {
		return 200
	}

	size, err := strconv.Atoi(c.CacheMaxSize)
	if err != nil || size <= 0 {
		logrus.Warnf("Invalid CACHE_MAX_SIZE value: %s, using default 200", c.CacheMaxSize)
		return 200
	}

	return size
}

// GetBrowserRenderHosts returns the hosts whose documents need a headless
// browser to produce layout-preserving text (published document viewers).
func (c *Config) GetBrowserRenderHosts() []string {
	if c.BrowserRenderHosts == "" {
		return []string{"docs.google.com", "drive.google.com"}
	}

	var hosts []string
	for _, host := range strings.Split(c.BrowserRenderHosts, ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// CourseTitles returns the course code to title mapping. The built-in catalog
// is overlaid with the optional JSON file at COURSE_TITLES_PATH. The returned
// map is a fresh copy; callers may hold it without seeing later mutations.
func (c *Config) CourseTitles() map[string]string {
	titles := make(map[string]string, len(defaultCourseTitles))
	for code, title := range defaultCourseTitles {
		titles[code] = title
	}

	if c.CourseTitlesPath == "" {
		return titles
	}

	data, err := os.ReadFile(c.CourseTitlesPath)
	if err != nil {
		logrus.Warnf("Could not read course titles file %s: %v, using built-in catalog", c.CourseTitlesPath, err)
		return titles
	}

	var overrides map[string]string
	if err := json.Unmarshal(data, &overrides); err != nil {
		logrus.Warnf("Could not parse course titles file %s: %v, using built-in catalog", c.CourseTitlesPath, err)
		return titles
	}

	for code, title := range overrides {
		titles[strings.ToUpper(strings.TrimSpace(code))] = title
	}
	return titles
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		AdminToken:         getEnv("ADMIN_TOKEN", ""),
		CacheTTLHours:      getEnv("CACHE_TTL_HOURS", "720"),
		CacheMaxSize:       getEnv("CACHE_MAX_SIZE", "200"),
		ColumnAnchorToken:  getEnv("COLUMN_ANCHOR_TOKEN", "Room"),
		SharedLabMarker:    getEnv("SHARED_LAB_MARKER", "SHARED LAB"),
		FacultyBaseURL:     getEnv("FACULTY_BASE_URL", "https://faculty.daffodilvarsity.edu.bd"),
		BrowserRenderHosts: getEnv("BROWSER_RENDER_HOSTS", ""),
		CourseTitlesPath:   getEnv("COURSE_TITLES_PATH", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
