package i18n

import (
	"reflect"
	"sync"
)

// Language type
type Language string

const (
	LangEN Language = "en"
	LangZH Language = "zh"
)

// Messages holds all translatable strings
type Messages struct {
	// System
	Starting           string
	ConfigLoaded       string
	UsingDBPath        string
	ShuttingDown       string
	ConfigLoadFailed   string
	DBInitFailed       string
	DBMigrationsFailed string
	PresetsLoaded      string
	PresetsLoadFailed  string
	APIServerError     string

	// Calculation warnings (codes produced by the calculator)
	WarnStopEqualsEntry  string
	WarnInvalidStop      string
	WarnPercentPosition  string
	WarnInvalidMargin    string
	WarnInvalidLoss      string
	WarnInvalidPosition  string
	WarnPositionTooLarge string
	WarnTakeProfit       string

	// History
	CalculationSaved   string
	CalculationDeleted string
	HistoryCleared     string
}

var (
	currentLang Language = LangEN
	mu          sync.RWMutex
	messages    *Messages
)

// English messages
var messagesEN = Messages{
	Starting:           "Leverage core starting...",
	ConfigLoaded:       "Config loaded, port=%s",
	UsingDBPath:        "Using database: %s",
	ShuttingDown:       "Shutting down...",
	ConfigLoadFailed:   "Failed to load config: %v",
	DBInitFailed:       "Failed to initialize database: %v",
	DBMigrationsFailed: "Failed to apply migrations: %v",
	PresetsLoaded:      "Loaded %d risk presets from %s",
	PresetsLoadFailed:  "Failed to load presets: %v",
	APIServerError:     "API server error: %v",

	WarnStopEqualsEntry:  "Stop price equals entry price",
	WarnInvalidStop:      "Stop price is invalid",
	WarnPercentPosition:  "Percent risk requires margin mode",
	WarnInvalidMargin:    "Margin capital is missing or invalid",
	WarnInvalidLoss:      "Allowed loss is missing or invalid",
	WarnInvalidPosition:  "Position size is missing or invalid",
	WarnPositionTooLarge: "Position exceeds the allowed loss at this stop",
	WarnTakeProfit:       "Take profit is on the wrong side of entry",

	CalculationSaved:   "Calculation %s saved for user %s",
	CalculationDeleted: "Calculation %s deleted",
	HistoryCleared:     "History cleared for user %s",
}

// Chinese messages
var messagesZH = Messages{
	Starting:           "杠杆计算核心启动中...",
	ConfigLoaded:       "配置已加载，端口=%s",
	UsingDBPath:        "使用数据库: %s",
	ShuttingDown:       "正在关闭...",
	ConfigLoadFailed:   "配置加载失败: %v",
	DBInitFailed:       "数据库初始化失败: %v",
	DBMigrationsFailed: "数据库迁移失败: %v",
	PresetsLoaded:      "已加载 %d 个风险预设，来源: %s",
	PresetsLoadFailed:  "风险预设加载失败: %v",
	APIServerError:     "API 服务错误: %v",

	WarnStopEqualsEntry:  "止损价等于入场价",
	WarnInvalidStop:      "止损价无效",
	WarnPercentPosition:  "百分比风险仅适用于保证金模式",
	WarnInvalidMargin:    "保证金不存在或无效",
	WarnInvalidLoss:      "允许亏损不存在或无效",
	WarnInvalidPosition:  "仓位规模不存在或无效",
	WarnPositionTooLarge: "该止损下仓位超出允许亏损",
	WarnTakeProfit:       "止盈价在入场价错误的一侧",

	CalculationSaved:   "计算 %s 已为用户 %s 保存",
	CalculationDeleted: "计算 %s 已删除",
	HistoryCleared:     "已清空用户 %s 的历史记录",
}

// warningKeys maps calculator warning codes to Messages field names.
var warningKeys = map[string]string{
	"stop_equals_entry":  "WarnStopEqualsEntry",
	"invalid_stop":       "WarnInvalidStop",
	"percent_position":   "WarnPercentPosition",
	"invalid_margin":     "WarnInvalidMargin",
	"invalid_loss":       "WarnInvalidLoss",
	"invalid_position":   "WarnInvalidPosition",
	"position_too_large": "WarnPositionTooLarge",
	"take_profit":        "WarnTakeProfit",
}

func init() {
	messages = &messagesEN
}

// SetLanguage sets the current language
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()

	currentLang = lang
	switch lang {
	case LangZH:
		messages = &messagesZH
	default:
		messages = &messagesEN
	}
}

// GetLanguage returns the current language
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return currentLang
}

// M returns the current messages
func M() *Messages {
	mu.RLock()
	defer mu.RUnlock()
	return messages
}

// Get returns specific message by key dynamically using reflection
func Get(key string) string {
	msg := M()
	v := reflect.ValueOf(msg).Elem()
	f := v.FieldByName(key)
	if f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return key
}

// WarningText returns the display string for a calculator warning code.
// Unknown codes come back unchanged so the UI still shows something.
func WarningText(code string) string {
	if key, ok := warningKeys[code]; ok {
		return Get(key)
	}
	return code
}
