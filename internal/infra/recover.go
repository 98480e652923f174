package infra

import (
	"fmt"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// GoRecoverable runs f, restarting it after a panic until the panic
// budget runs out. A negative maxPanics restarts without limit.
func GoRecoverable(maxPanics int, id string, f func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		entry := log.WithFields(log.Fields{
			"job":    id,
			"origin": IdentifyPanic(),
		})
		if maxPanics == 0 {
			entry.Fatalf("panic budget exhausted: %v", r)
		}
		if maxPanics > 0 {
			maxPanics--
		}
		entry.Errorf("recovering after panic: %v", r)
		go GoRecoverable(maxPanics, id, f)
	}()
	f()
}

// IdentifyPanic walks the stack past the runtime frames and names the
// frame the panic originated from.
func IdentifyPanic() string {
	var pc [16]uintptr
	n := runtime.Callers(3, pc[:])

	var name, file string
	var line int
	for _, frame := range pc[:n] {
		fn := runtime.FuncForPC(frame)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(frame)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}
	return fmt.Sprintf("pc:%x", pc)
}
