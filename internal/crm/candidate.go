package crm

// Etapas del proceso de aplicación, en orden. El progreso se deriva de la
// posición de la etapa actual en esta lista.
var ApplicationStages = []string{
	"Application Review",
	"Candidate Interview",
	"Candidate Language Assessment",
	"Candidate ID/Background Verification",
	"Contract & Payment Setup",
	"Training Required",
	"Client Tool Orientation",
	"Interpreter Ready for Production",
}

// Progress devuelve el porcentaje de avance para una etapa; 0 si es desconocida.
func Progress(stage string) int {
	for i, s := range ApplicationStages {
		if s == stage {
			return int(float64(i+1) / float64(len(ApplicationStages)) * 100)
		}
	}
	return 0
}

// Document es el estado de un documento requerido del candidato.
type Document struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// DeriveDocuments mapea los campos de adjuntos del lead al estado de documentos.
func DeriveDocuments(lead Record) []Document {
	status := func(field string) string {
		if lead[field] != nil {
			return "uploaded"
		}
		return "pending"
	}
	return []Document{
		{Name: "Resume", Status: status("Resume")},
		{Name: "Government ID", Status: status("Government_issued_ID")},
		{Name: "Background Check", Status: status("Background_check_report")},
	}
}

// Recruiter identifica al coordinador asignado a un candidato.
type Recruiter struct {
	Name  string  `json:"name"`
	Title string  `json:"title"`
	Email *string `json:"email"`
}

// RecruiterInfo construye la info del reclutador desde el campo owner del lead.
func RecruiterInfo(owner string) *Recruiter {
	if owner == "" {
		return nil
	}
	return &Recruiter{Name: owner, Title: "Recruitment Coordinator"}
}
