package gpu

import (
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
)

// ValidationLayers are enabled when diagnostics are requested.
var ValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}

func debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logDebug,
	}
}

func severityLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) log.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return log.ErrorLevel
	case severity&ext_debug_utils.SeverityWarning != 0:
		return log.WarnLevel
	case severity&ext_debug_utils.SeverityInfo != 0:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

func logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	entry := log.WithFields(log.Fields{
		"source":   "validation",
		"type":     msgType,
		"severity": severity,
	})

	switch severityLevel(severity) {
	case log.ErrorLevel:
		entry.Error(data.Message)
	case log.WarnLevel:
		entry.Warn(data.Message)
	case log.InfoLevel:
		entry.Info(data.Message)
	default:
		entry.Debug(data.Message)
	}

	return false
}
