package history

import "strings"

// Trigger variants group origins for display.
const (
	VariantManual   = "manual"
	VariantTimer    = "timer"
	VariantSystem   = "system"
	VariantPresence = "presence"
	VariantGeneric  = "generic"
)

var originLabels = map[string]string{
	"manual":       "Ручной запуск",
	"manual-batch": "Ручной пакет",
	"timer":        "Таймер",
	"timer-single": "Таймер",
	"scheduler":    "Таймер",
	"save":         "Сохранение",
	"resume":       "Возобновление",
	"pause":        "Пауза",
	"presence":     "Присутствие",
	"enable":       "Включение",
	"disable":      "Выключение",
}

var originVariants = map[string]string{
	"manual":       VariantManual,
	"manual-batch": VariantManual,
	"timer":        VariantTimer,
	"timer-single": VariantTimer,
	"scheduler":    VariantTimer,
	"save":         VariantSystem,
	"resume":       VariantSystem,
	"presence":     VariantPresence,
}

// sensorOffReasons translates the sensor threshold that switched a light.
var sensorOffReasons = map[string]string{
	"above": "выкл",
	"below": "вкл",
}

// Status labels of status-only events.
const (
	LabelResumed         = "Возобновление работы"
	LabelEnabled         = "Сценарий включен"
	LabelDisabled        = "Сценарий выключен"
	LabelSensorOff       = "Выключено по датчику"
	LabelUnnamedScenario = "Без имени"
)

// TriggerLabel maps an origin code to its display label. Unknown origins are
// returned as is.
func TriggerLabel(origin string) string {
	if origin == "" {
		return ""
	}
	if label, ok := originLabels[origin]; ok {
		return label
	}
	return origin
}

// TriggerVariant maps an origin code to its display group.
func TriggerVariant(origin string) string {
	if v, ok := originVariants[origin]; ok {
		return v
	}
	return VariantGeneric
}

func sensorOffLabel(lux *float64, reason string) string {
	word, ok := sensorOffReasons[strings.ToLower(strings.TrimSpace(reason))]
	if lux == nil || !ok {
		return LabelSensorOff
	}
	return formatLux(*lux) + " lx " + word
}
