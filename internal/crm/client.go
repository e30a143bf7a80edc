package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Category clasifica el tipo de registro encontrado en el CRM.
type Category string

const (
	CategoryNone        Category = ""
	CategoryCandidate   Category = "candidate"
	CategoryInterpreter Category = "interpreter"
)

// Record es un registro crudo del CRM. Los nombres de campo son los del CRM
// (First_Name, Lead_Status, ...); se guarda tal cual como snapshot opaco.
type Record map[string]any

// Str devuelve un campo como string, vacío si falta o no es string.
func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Directory resuelve un email contra las colecciones del CRM.
type Directory interface {
	// ResolveEmail busca primero en candidatos (Leads) y sólo si no está,
	// en intérpretes (Contacts). Sin match devuelve (nil, CategoryNone, nil).
	ResolveEmail(ctx context.Context, email string) (Record, Category, error)
}

// ErrNotConfigured indica que la integración con el CRM no tiene credenciales.
var ErrNotConfigured = errors.New("crm not configured")

// Client habla con el CRM (Zoho) vía COQL, renovando el access token con el
// refresh token y cacheándolo hasta cerca de su expiración.
type Client struct {
	accountsURL  string
	apiURL       string
	clientID     string
	clientSecret string
	refreshToken string

	client *http.Client
	cache  TokenCache
	logger *zap.Logger
}

func NewClient(accountsURL, apiURL, clientID, clientSecret, refreshToken string, cache TokenCache, logger *zap.Logger) *Client {
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	return &Client{
		accountsURL:  strings.TrimRight(accountsURL, "/"),
		apiURL:       strings.TrimRight(apiURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		client:       &http.Client{Timeout: 10 * time.Second},
		cache:        cache,
		logger:       logger,
	}
}

// Enabled dice si la integración tiene credenciales completas.
func (c *Client) Enabled() bool {
	return c != nil && c.clientID != "" && c.clientSecret != "" && c.refreshToken != ""
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	if token, ok, err := c.cache.Get(ctx); err == nil && ok {
		return token, nil
	} else if err != nil {
		c.logger.Warn("crm token cache read failed", zap.Error(err))
	}

	params := url.Values{
		"refresh_token": {c.refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"refresh_token"},
	}
	endpoint := c.accountsURL + "/oauth/v2/token?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("crm token refresh: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("crm token decode: %w", err)
	}
	if data.AccessToken == "" {
		return "", errors.New("crm token refresh: no access_token in response")
	}

	expiresIn := data.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}
	// Renovamos 5 minutos antes del vencimiento real.
	ttl := time.Duration(expiresIn-300) * time.Second
	if err := c.cache.Set(ctx, data.AccessToken, ttl); err != nil {
		c.logger.Warn("crm token cache write failed", zap.Error(err))
	}
	return data.AccessToken, nil
}

// coql ejecuta una query COQL y devuelve las filas.
func (c *Client) coql(ctx context.Context, query string) ([]Record, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"select_query": query})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/crm/v8/coql", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm coql: %w", err)
	}
	defer resp.Body.Close()

	// 204 significa query válida sin resultados.
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("crm coql: status=%d", resp.StatusCode)
	}

	var data struct {
		Data []Record `json:"data"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data.Data, nil
}

// SearchLeadByEmail busca un candidato (Lead) por email exacto.
func (c *Client) SearchLeadByEmail(ctx context.Context, email string) (Record, error) {
	query := fmt.Sprintf(`select id, First_Name, Last_Name, Email, Phone, Lead_Status, Language, Training_Status, Stage, Tier_Level, Candidate_Recruitment_Owner from Leads where Email = "%s" limit 1`, email)
	rows, err := c.coql(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// SearchContactByEmail busca un intérprete (Contact) por email exacto.
func (c *Client) SearchContactByEmail(ctx context.Context, email string) (Record, error) {
	query := fmt.Sprintf(`select id, First_Name, Last_Name, Email, Phone from Contacts where Email = "%s" limit 1`, email)
	rows, err := c.coql(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ResolveEmail implementa Directory. El orden Leads -> Contacts es fijo.
func (c *Client) ResolveEmail(ctx context.Context, email string) (Record, Category, error) {
	lead, err := c.SearchLeadByEmail(ctx, email)
	if err != nil {
		return nil, CategoryNone, err
	}
	if lead != nil {
		return lead, CategoryCandidate, nil
	}

	contact, err := c.SearchContactByEmail(ctx, email)
	if err != nil {
		return nil, CategoryNone, err
	}
	if contact != nil {
		return contact, CategoryInterpreter, nil
	}
	return nil, CategoryNone, nil
}

// LeadWithDocuments trae el lead y completa los campos de documentos que el
// COQL no expone, con un fetch de detalle por id.
func (c *Client) LeadWithDocuments(ctx context.Context, email string) (Record, error) {
	query := fmt.Sprintf(`select id, First_Name, Last_Name, Email, Lead_Status, Language, Training_Status, Stage, Tier_Level, Candidate_Recruitment_Owner from Leads where Email = "%s" limit 1`, email)
	rows, err := c.coql(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	lead := rows[0]

	leadID := lead.Str("id")
	if leadID == "" {
		return lead, nil
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return lead, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/crm/v8/Leads/"+leadID, nil)
	if err != nil {
		return lead, nil
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("crm lead detail fetch failed", zap.Error(err))
		return lead, nil
	}
	defer resp.Body.Close()

	var detail struct {
		Data []Record `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil || len(detail.Data) == 0 {
		return lead, nil
	}
	full := detail.Data[0]
	for _, field := range []string{"Government_issued_ID", "Background_check_report", "Resume"} {
		lead[field] = full[field]
	}
	return lead, nil
}

// Task es una tarea del CRM asociada a un lead.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date,omitempty"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	Completed   bool   `json:"completed"`
}

// TasksForLead trae las tareas del módulo Tasks relacionadas con un lead.
func (c *Client) TasksForLead(ctx context.Context, leadID string) ([]Task, error) {
	if leadID == "" {
		return nil, nil
	}
	query := fmt.Sprintf("select id, Subject, Due_Date, Status, Priority, Description from Tasks where What_Id = %s limit 20", leadID)
	rows, err := c.coql(ctx, query)
	if err != nil {
		return nil, err
	}

	tasks := make([]Task, 0, len(rows))
	for _, row := range rows {
		status := row.Str("Status")
		title := row.Str("Subject")
		if title == "" {
			title = "Untitled Task"
		}
		priority := row.Str("Priority")
		if priority == "" {
			priority = "Normal"
		}
		tasks = append(tasks, Task{
			ID:          row.Str("id"),
			Title:       title,
			Description: row.Str("Description"),
			DueDate:     row.Str("Due_Date"),
			Priority:    priority,
			Status:      status,
			Completed:   status == "Completed" || status == "Done",
		})
	}
	return tasks, nil
}
