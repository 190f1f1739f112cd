package ai

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/gemba/pkg/models"
)

const expertRole = "Anda adalah ahli analisa root cause untuk lini produksi manufaktur packaging."

const languageRules = `Aturan bahasa:
- Jawab dalam Bahasa Indonesia yang ringkas seperti catatan teknisi.
- Istilah mesin atau teknis boleh tetap dalam bahasa Inggris.
- Tulis satu istilah yang paling tepat, jangan memberi alternatif dan jangan memakai tanda "/".`

const rootCauseInstructions = expertRole + `

` + languageRules + `

Tugas: dari problem dan data historis yang diberikan, sebutkan 3 sampai 5 root cause yang paling mungkin.
Utamakan root cause dari kasus historis yang mirip. Jika tidak ada yang mirip, gunakan pengetahuan manufaktur umum.

Keluarkan hanya JSON array berisi string, misalnya:
["Root cause 1", "Root cause 2", "Root cause 3"]`

const actionInstructions = expertRole + `

` + languageRules + `

Tugas: untuk problem dan root cause yang diberikan, usulkan tindakan sementara (temporary) untuk menahan dampak
dan tindakan pencegahan (preventive) agar masalah tidak terulang. Masing-masing 2 sampai 5 butir.
Contoh tindakan pada data historis boleh dipakai bila relevan.

Keluarkan hanya JSON object dengan format:
{"temporary_actions": ["..."], "preventive_actions": ["..."]}`

const scoringInstructions = expertRole + `

Tugas: nilai setiap root cause yang diajukan user dengan empat kriteria, masing-masing 0 sampai 2.5:
- spesifisitas: seberapa spesifik penyebab dijelaskan
- relevansi: seberapa sesuai dengan problem
- kejelasan: seberapa jelas analisanya
- actionability: seberapa mudah ditindaklanjuti
total_score adalah jumlah keempat nilai (maksimal 10). Feedback singkat dan membangun, dalam Bahasa Indonesia.
Nilai root cause sesuai urutan input, satu entri per root cause.

Keluarkan hanya JSON object dengan format:
{"scores": [{"root_cause": "...", "spesifisitas": 0, "relevansi": 0, "kejelasan": 0, "actionability": 0, "total_score": 0, "feedback": "..."}], "summary": "..."}`

const mergeInstructions = expertRole + `

Tugas: dari daftar root cause beberapa user, gabungkan yang maknanya sama menjadi satu rumusan yang lebih baik.
Root cause yang berbeda tetap berdiri sendiri. Setiap entri input harus muncul tepat satu kali di output,
lengkap dengan root_cause dan user_id aslinya.

Keluarkan hanya JSON object dengan format:
{"merged_root_causes": [{"merged_root_cause": "...", "original_data": [{"root_cause": "...", "user_id": "..."}]}],
 "individual_root_causes": [{"root_cause": "...", "user_id": "..."}]}`

func rootCausePrompt(q models.QueryContext, history string) string {
	var b strings.Builder
	writeQuery(&b, q, false)
	b.WriteString("\nData historis (area dan category sama):\n")
	b.WriteString(history)
	return b.String()
}

func actionPrompt(q models.QueryContext, history string) string {
	var b strings.Builder
	writeQuery(&b, q, true)
	b.WriteString("\nData historis (area dan category sama):\n")
	b.WriteString(history)
	return b.String()
}

func scoringPrompt(q models.QueryContext, causes []string) string {
	var b strings.Builder
	writeQuery(&b, q, false)
	b.WriteString("\nRoot cause untuk dinilai:\n")
	for i, c := range causes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return b.String()
}

func mergePrompt(items []models.UserRootCause) string {
	var b strings.Builder
	b.WriteString("Root cause dari user:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- root_cause: %q, user_id: %q\n", it.RootCause, it.UserID)
	}
	return b.String()
}

func writeQuery(b *strings.Builder, q models.QueryContext, withRootCause bool) {
	fmt.Fprintf(b, "Area: %s\n", q.Area)
	fmt.Fprintf(b, "Category (4M+1E): %s\n", q.Category)
	fmt.Fprintf(b, "Problem: %s\n", q.Problem)
	if withRootCause {
		fmt.Fprintf(b, "Root cause: %s\n", q.RootCause)
	}
}
