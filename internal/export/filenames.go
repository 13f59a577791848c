package export

import (
	"fmt"
	"time"

	"github.com/balkashynov/checkmaster/internal/models"
)

// SessionFileName is checklist-<created millis>.<ext>
func SessionFileName(s models.Session, ext string) string {
	return fmt.Sprintf("checklist-%d.%s", s.Created.UnixMilli(), ext)
}

// BackupFileName is CheckMaster_Backup_<yyyymmdd>.json
func BackupFileName(now time.Time) string {
	return "CheckMaster_Backup_" + now.Format("20060102") + ".json"
}

// WorkbookFileName is CheckMaster_Export_<yyyymmdd>.xlsx
func WorkbookFileName(now time.Time) string {
	return "CheckMaster_Export_" + now.Format("20060102") + ".xlsx"
}
