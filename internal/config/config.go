// Пакет config — загрузка и валидация конфигурации QC Module
// из переменных окружения (и опционального .env файла).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Области проверки дубликатов маршрутных карт.
const (
	// CardScopeShift — карта не должна повторяться внутри одной смены.
	CardScopeShift = "shift"
	// CardScopeGlobal — карта не должна повторяться ни в одной смене.
	CardScopeGlobal = "global"
)

// Config содержит все параметры конфигурации QC Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Внешняя база маршрутных карт ---

	// URL сервиса маршрутных карт литейного производства
	// (пустая строка — поиск карт отключён)
	CardServiceURL string
	// Путь к CA-сертификату для TLS-соединений с сервисом карт (опционально)
	CardServiceCAPath string

	// --- Бизнес-политики ---

	// Часовой пояс цеха для расчёта окон смен
	Location *time.Location
	// Автоматическое закрытие просроченных смен при чтении
	AutoCloseShifts bool
	// Область проверки дубликатов маршрутных карт (shift, global)
	CardDuplicateScope string
	// Жёсткая сверка суммы дефектов с (отлито - принято).
	// false — расхождение даёт предупреждение, а не ошибку.
	StrictDefectReconciliation bool
	// Порог предупреждения по количеству отлитых деталей в одной записи
	MaxCastCount int
	// Порог предупреждения по суммарному количеству дефектов в одной записи
	MaxDefectCount int

	// --- Мониторинг зависимостей ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
// Перед чтением окружения подхватывает .env из рабочей директории, если есть.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// QC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("QC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("QC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("QC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// QC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("QC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("QC_LOG_LEVEL: %w", err)
	}

	// QC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("QC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("QC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// QC_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("QC_DB_HOST")
	if err != nil {
		return nil, err
	}

	// QC_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("QC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("QC_DB_PORT: %w", err)
	}

	// QC_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("QC_DB_NAME")
	if err != nil {
		return nil, err
	}

	// QC_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("QC_DB_USER")
	if err != nil {
		return nil, err
	}

	// QC_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("QC_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// QC_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("QC_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("QC_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Внешняя база маршрутных карт ---

	// QC_CARD_SERVICE_URL — URL сервиса маршрутных карт (опционально)
	cfg.CardServiceURL = strings.TrimRight(getEnvDefault("QC_CARD_SERVICE_URL", ""), "/")

	// QC_CARD_SERVICE_CA_PATH — CA-сертификат сервиса карт (опционально)
	cfg.CardServiceCAPath = getEnvDefault("QC_CARD_SERVICE_CA_PATH", "")

	// --- Бизнес-политики ---

	// QC_TIMEZONE — часовой пояс цеха (по умолчанию Local)
	tzName := getEnvDefault("QC_TIMEZONE", "Local")
	cfg.Location, err = time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("QC_TIMEZONE: неизвестный часовой пояс %q", tzName)
	}

	// QC_AUTO_CLOSE_SHIFTS — автозакрытие просроченных смен (по умолчанию true)
	cfg.AutoCloseShifts, err = getEnvBool("QC_AUTO_CLOSE_SHIFTS", true)
	if err != nil {
		return nil, fmt.Errorf("QC_AUTO_CLOSE_SHIFTS: %w", err)
	}

	// QC_CARD_DUPLICATE_SCOPE — область проверки дубликатов карт (по умолчанию shift)
	cfg.CardDuplicateScope = getEnvDefault("QC_CARD_DUPLICATE_SCOPE", CardScopeShift)
	if cfg.CardDuplicateScope != CardScopeShift && cfg.CardDuplicateScope != CardScopeGlobal {
		return nil, fmt.Errorf("QC_CARD_DUPLICATE_SCOPE: недопустимое значение %q, допустимые: %s, %s",
			cfg.CardDuplicateScope, CardScopeShift, CardScopeGlobal)
	}

	// QC_STRICT_DEFECT_RECONCILIATION — жёсткая сверка дефектов (по умолчанию false)
	cfg.StrictDefectReconciliation, err = getEnvBool("QC_STRICT_DEFECT_RECONCILIATION", false)
	if err != nil {
		return nil, fmt.Errorf("QC_STRICT_DEFECT_RECONCILIATION: %w", err)
	}

	// QC_MAX_CAST_COUNT — порог предупреждения по отлитым деталям (по умолчанию 10000)
	cfg.MaxCastCount, err = getEnvInt("QC_MAX_CAST_COUNT", 10000)
	if err != nil {
		return nil, fmt.Errorf("QC_MAX_CAST_COUNT: %w", err)
	}
	if cfg.MaxCastCount < 1 {
		return nil, fmt.Errorf("QC_MAX_CAST_COUNT: значение %d должно быть положительным", cfg.MaxCastCount)
	}

	// QC_MAX_DEFECT_COUNT — порог предупреждения по дефектам (по умолчанию 10000)
	cfg.MaxDefectCount, err = getEnvInt("QC_MAX_DEFECT_COUNT", 10000)
	if err != nil {
		return nil, fmt.Errorf("QC_MAX_DEFECT_COUNT: %w", err)
	}
	if cfg.MaxDefectCount < 1 {
		return nil, fmt.Errorf("QC_MAX_DEFECT_COUNT: значение %d должно быть положительным", cfg.MaxDefectCount)
	}

	// --- Мониторинг зависимостей ---

	// QC_DEPHEALTH_GROUP — группа в метриках (по умолчанию foundry-qc)
	cfg.DephealthGroup = getEnvDefault("QC_DEPHEALTH_GROUP", "foundry-qc")

	// QC_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("QC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// QC_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("QC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для метрик и лейблов).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
