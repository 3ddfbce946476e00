package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"stocklog/pkg/tradelog"
)

const maxImportBytes = 32 << 20

func (h *handler) exportBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := h.core.ExportData()
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	filename := fmt.Sprintf("stocklog-backup-%s.json", doc.ExportedAt.Format("20060102"))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	writeJSON(w, http.StatusOK, doc)
}

// importBackup replaces all data with the posted document. Unknown fields
// are tolerated so documents from newer front ends still load.
func (h *handler) importBackup(w http.ResponseWriter, r *http.Request) {
	var doc tradelog.DataDocument
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes)).Decode(&doc); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if err := h.core.ImportData(&doc); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "imported",
		"stocks":       len(doc.Stocks),
		"transactions": len(doc.Transactions),
	})
}
