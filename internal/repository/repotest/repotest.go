// Package repotest provides in-memory repositories for service and handler
// tests. They apply the same write-boundary rules as the postgres store.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
)

// Store holds every record; the repositories below are views over it so
// that joins such as patient names and cascades behave like the database.
type Store struct {
	mu             sync.Mutex
	nextID         int64
	Now            func() time.Time
	Users          map[int64]*model.User
	Patients       map[int64]*model.Patient
	Readings       map[int64]*model.BpReading
	Tasks          map[int64]*model.WorkflowTask
	Communications map[int64]*model.CommunicationLog
	Events         []*model.OutboxEvent

	// Err, when set, is returned by every repository call.
	Err error
}

func NewStore() *Store {
	return &Store{
		Now:            time.Now,
		Users:          make(map[int64]*model.User),
		Patients:       make(map[int64]*model.Patient),
		Readings:       make(map[int64]*model.BpReading),
		Tasks:          make(map[int64]*model.WorkflowTask),
		Communications: make(map[int64]*model.CommunicationLog),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) patientName(id int64) string {
	if p, ok := s.Patients[id]; ok {
		return p.FirstName + " " + p.LastName
	}
	return ""
}

func (s *Store) userName(id int64) string {
	if u, ok := s.Users[id]; ok {
		return u.Name
	}
	return ""
}

func (s *Store) requirePatient(id int64) error {
	if _, ok := s.Patients[id]; !ok {
		return errors.NotFound("patient", nil).WithDetail("patient", "patient does not exist")
	}
	return nil
}

func (s *Store) requireUser(id int64, field string) error {
	if _, ok := s.Users[id]; !ok {
		return errors.NotFound("user", nil).WithDetail(field, "user does not exist")
	}
	return nil
}

func page[T any](items []T, p model.Pagination) []T {
	offset := p.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.PageSize > 0 && offset+p.PageSize < end {
		end = offset + p.PageSize
	}
	return items[offset:end]
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

// Users

type UserRepository struct{ *Store }

func (r UserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, u := range r.Users {
		if u.Username == user.Username {
			return errors.Conflict("username already exists", nil).WithDetail("username", "username already exists")
		}
	}
	user.ID = r.id()
	user.CreatedAt = r.Now()
	cp := *user
	r.Users[user.ID] = &cp
	return nil
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.Users[id]
	if !ok {
		return nil, errors.NotFound("user", nil)
	}
	cp := *u
	return &cp, nil
}

func (r UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.Users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.NotFound("user", nil)
}

func (r UserRepository) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Users[user.ID]; !ok {
		return errors.NotFound("user", nil)
	}
	cp := *user
	r.Users[user.ID] = &cp
	return nil
}

func (r UserRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Users[id]; !ok {
		return errors.NotFound("user", nil)
	}
	delete(r.Users, id)
	return nil
}

func (r UserRepository) List(ctx context.Context, filter *model.UserFilter) ([]*model.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}
	var out []*model.User
	for _, u := range r.Users {
		if filter.Role != "" && string(u.Role) != filter.Role {
			continue
		}
		if filter.Search != "" && !contains(u.Username+" "+u.Name, filter.Search) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, filter.Pagination), len(out), nil
}

func (r UserRepository) FirstActiveByRole(ctx context.Context, role model.Role) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var first *model.User
	for _, u := range r.Users {
		if u.Role == role && u.IsActive && (first == nil || u.ID < first.ID) {
			first = u
		}
	}
	if first == nil {
		return nil, errors.NotFound("user", nil)
	}
	cp := *first
	return &cp, nil
}

// Patients

type PatientRepository struct{ *Store }

func (r PatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, p := range r.Patients {
		if p.EmployeeID == patient.EmployeeID {
			return errors.Conflict("employee_id already exists", nil).WithDetail("employee_id", "employee_id already exists")
		}
	}
	patient.ID = r.id()
	patient.CreatedAt = r.Now()
	cp := *patient
	r.Patients[patient.ID] = &cp
	return nil
}

func (r PatientRepository) GetByID(ctx context.Context, id int64) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	p, ok := r.Patients[id]
	if !ok {
		return nil, errors.NotFound("patient", nil)
	}
	cp := *p
	return &cp, nil
}

func (r PatientRepository) Update(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Patients[patient.ID]; !ok {
		return errors.NotFound("patient", nil)
	}
	for _, p := range r.Patients {
		if p.ID != patient.ID && p.EmployeeID == patient.EmployeeID {
			return errors.Conflict("employee_id already exists", nil).WithDetail("employee_id", "employee_id already exists")
		}
	}
	cp := *patient
	r.Patients[patient.ID] = &cp
	return nil
}

// Delete cascades to the patient's readings, tasks and communications.
func (r PatientRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Patients[id]; !ok {
		return errors.NotFound("patient", nil)
	}
	delete(r.Patients, id)
	for rid, reading := range r.Readings {
		if reading.PatientID == id {
			delete(r.Readings, rid)
		}
	}
	for tid, task := range r.Tasks {
		if task.PatientID == id {
			delete(r.Tasks, tid)
		}
	}
	for cid, log := range r.Communications {
		if log.PatientID == id {
			delete(r.Communications, cid)
		}
	}
	return nil
}

func sortPatients(out []*model.Patient) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		if out[i].FirstName != out[j].FirstName {
			return out[i].FirstName < out[j].FirstName
		}
		return out[i].ID < out[j].ID
	})
}

func (r PatientRepository) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}
	var out []*model.Patient
	for _, p := range r.Patients {
		if filter.Search != "" && !contains(strings.Join([]string{p.FirstName, p.LastName, p.EmployeeID, p.Department}, " "), filter.Search) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sortPatients(out)
	return page(out, filter.Pagination), len(out), nil
}

func (r PatientRepository) ListPriority(ctx context.Context) ([]*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	latest := r.latestLocked()
	var out []*model.Patient
	for _, p := range r.Patients {
		if reading, ok := latest[p.ID]; ok && reading.IsAbnormal {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortPatients(out)
	return out, nil
}

// latestLocked picks each patient's most recent reading, ties going to the
// higher id.
func (s *Store) latestLocked() map[int64]*model.BpReading {
	latest := make(map[int64]*model.BpReading)
	for _, reading := range s.Readings {
		cur, ok := latest[reading.PatientID]
		if !ok || reading.RecordedAt.After(cur.RecordedAt) ||
			(reading.RecordedAt.Equal(cur.RecordedAt) && reading.ID > cur.ID) {
			latest[reading.PatientID] = reading
		}
	}
	return latest
}

// Readings

type ReadingRepository struct{ *Store }

func (r ReadingRepository) decorate(reading *model.BpReading) *model.BpReading {
	cp := *reading
	cp.PatientName = r.patientName(cp.PatientID)
	cp.RecordedByName = r.userName(cp.RecordedBy)
	return &cp
}

func (r ReadingRepository) Create(ctx context.Context, reading *model.BpReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if err := r.requirePatient(reading.PatientID); err != nil {
		return err
	}
	if err := r.requireUser(reading.RecordedBy, "recorded_by"); err != nil {
		return err
	}
	reading.Categorize()
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = r.Now()
	}
	reading.ID = r.id()
	cp := *reading
	r.Readings[reading.ID] = &cp
	return nil
}

func (r ReadingRepository) GetByID(ctx context.Context, id int64) (*model.BpReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	reading, ok := r.Readings[id]
	if !ok {
		return nil, errors.NotFound("reading", nil)
	}
	return r.decorate(reading), nil
}

func (r ReadingRepository) Update(ctx context.Context, reading *model.BpReading) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Readings[reading.ID]; !ok {
		return errors.NotFound("reading", nil)
	}
	if err := r.requirePatient(reading.PatientID); err != nil {
		return err
	}
	reading.Categorize()
	cp := *reading
	r.Readings[reading.ID] = &cp
	return nil
}

func (r ReadingRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Readings[id]; !ok {
		return errors.NotFound("reading", nil)
	}
	delete(r.Readings, id)
	return nil
}

func (r ReadingRepository) sorted(keep func(*model.BpReading) bool) []*model.BpReading {
	var out []*model.BpReading
	for _, reading := range r.Readings {
		if keep(reading) {
			out = append(out, r.decorate(reading))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r ReadingRepository) List(ctx context.Context, filter *model.ReadingFilter) ([]*model.BpReading, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}
	out := r.sorted(func(reading *model.BpReading) bool {
		switch {
		case filter.PatientID != nil && reading.PatientID != *filter.PatientID:
			return false
		case filter.RecordedBy != nil && reading.RecordedBy != *filter.RecordedBy:
			return false
		case filter.Category != "" && string(reading.Category) != filter.Category:
			return false
		case filter.AbnormalOnly && !reading.IsAbnormal:
			return false
		case filter.DateFrom != nil && reading.RecordedAt.Before(*filter.DateFrom):
			return false
		case filter.DateTo != nil && !reading.RecordedAt.Before(filter.DateTo.AddDate(0, 0, 1)):
			return false
		}
		return true
	})
	return page(out, filter.Pagination), len(out), nil
}

func (r ReadingRepository) Recent(ctx context.Context, limit int) ([]*model.BpReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := r.sorted(func(*model.BpReading) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r ReadingRepository) LatestByPatients(ctx context.Context, patientIDs []int64) (map[int64]*model.BpReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	all := r.latestLocked()
	latest := make(map[int64]*model.BpReading, len(patientIDs))
	for _, id := range patientIDs {
		if reading, ok := all[id]; ok {
			latest[id] = r.decorate(reading)
		}
	}
	return latest, nil
}

func (r ReadingRepository) ListByPatientSince(ctx context.Context, patientID int64, since time.Time) ([]*model.BpReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := r.sorted(func(reading *model.BpReading) bool {
		return reading.PatientID == patientID && !reading.RecordedAt.Before(since)
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Tasks

type TaskRepository struct{ *Store }

func (r TaskRepository) decorate(task *model.WorkflowTask) *model.WorkflowTask {
	cp := *task
	cp.PatientName = r.patientName(cp.PatientID)
	cp.AssigneeName = r.userName(cp.AssignedTo)
	return &cp
}

func (r TaskRepository) Create(ctx context.Context, task *model.WorkflowTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if err := r.requirePatient(task.PatientID); err != nil {
		return err
	}
	if err := r.requireUser(task.AssignedTo, "assigned_to"); err != nil {
		return err
	}
	task.ApplyCompletion(r.Now())
	task.ID = r.id()
	task.CreatedAt = r.Now()
	cp := *task
	r.Tasks[task.ID] = &cp
	return nil
}

func (r TaskRepository) GetByID(ctx context.Context, id int64) (*model.WorkflowTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	task, ok := r.Tasks[id]
	if !ok {
		return nil, errors.NotFound("task", nil)
	}
	return r.decorate(task), nil
}

func (r TaskRepository) Update(ctx context.Context, task *model.WorkflowTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Tasks[task.ID]; !ok {
		return errors.NotFound("task", nil)
	}
	if err := r.requireUser(task.AssignedTo, "assigned_to"); err != nil {
		return err
	}
	task.ApplyCompletion(r.Now())
	cp := *task
	r.Tasks[task.ID] = &cp
	return nil
}

func (r TaskRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Tasks[id]; !ok {
		return errors.NotFound("task", nil)
	}
	delete(r.Tasks, id)
	return nil
}

var priorityRank = map[model.TaskPriority]int{
	model.TaskPriorityUrgent: 4,
	model.TaskPriorityHigh:   3,
	model.TaskPriorityMedium: 2,
	model.TaskPriorityLow:    1,
}

func (r TaskRepository) List(ctx context.Context, filter *model.TaskFilter) ([]*model.WorkflowTask, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}
	var out []*model.WorkflowTask
	for _, task := range r.Tasks {
		switch {
		case filter.Status != "" && string(task.Status) != filter.Status:
			continue
		case filter.Priority != "" && string(task.Priority) != filter.Priority:
			continue
		case filter.AssignedTo != nil && task.AssignedTo != *filter.AssignedTo:
			continue
		case filter.PatientID != nil && task.PatientID != *filter.PatientID:
			continue
		case filter.Search != "" && !contains(task.Title+" "+task.Description, filter.Search):
			continue
		}
		out = append(out, r.decorate(task))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if priorityRank[a.Priority] != priorityRank[b.Priority] {
			return priorityRank[a.Priority] > priorityRank[b.Priority]
		}
		switch {
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		}
		return a.ID < b.ID
	})
	return page(out, filter.Pagination), len(out), nil
}

// Communications

type CommunicationRepository struct{ *Store }

func (r CommunicationRepository) decorate(log *model.CommunicationLog) *model.CommunicationLog {
	cp := *log
	cp.PatientName = r.patientName(cp.PatientID)
	cp.UserName = r.userName(cp.UserID)
	if p, ok := r.Patients[cp.PatientID]; ok {
		cp.PatientDetails = model.PatientSummary{
			ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, EmployeeID: p.EmployeeID,
			Department: p.Department, Phone: p.Phone, Email: p.Email,
		}
	}
	if u, ok := r.Users[cp.UserID]; ok {
		cp.UserDetails = model.UserSummary{ID: u.ID, Name: u.Name, Role: u.Role, Email: u.Email}
	}
	return &cp
}

func (r CommunicationRepository) Create(ctx context.Context, log *model.CommunicationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if err := r.requirePatient(log.PatientID); err != nil {
		return err
	}
	if err := r.requireUser(log.UserID, "user"); err != nil {
		return err
	}
	log.ID = r.id()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.Now()
	}
	cp := *log
	r.Communications[log.ID] = &cp
	return nil
}

func (r CommunicationRepository) GetByID(ctx context.Context, id int64) (*model.CommunicationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	log, ok := r.Communications[id]
	if !ok {
		return nil, errors.NotFound("communication", nil)
	}
	return r.decorate(log), nil
}

func (r CommunicationRepository) Update(ctx context.Context, log *model.CommunicationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Communications[log.ID]; !ok {
		return errors.NotFound("communication", nil)
	}
	cp := *log
	r.Communications[log.ID] = &cp
	return nil
}

func (r CommunicationRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.Communications[id]; !ok {
		return errors.NotFound("communication", nil)
	}
	delete(r.Communications, id)
	return nil
}

func (r CommunicationRepository) List(ctx context.Context, filter *model.CommunicationFilter) ([]*model.CommunicationLog, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}
	var out []*model.CommunicationLog
	for _, log := range r.Communications {
		switch {
		case filter.PatientID != nil && log.PatientID != *filter.PatientID:
			continue
		case filter.UserID != nil && log.UserID != *filter.UserID:
			continue
		case filter.Type != "" && string(log.Type) != filter.Type:
			continue
		case filter.Outcome != "" && (log.Outcome == nil || string(*log.Outcome) != filter.Outcome):
			continue
		case filter.DateFrom != nil && log.CreatedAt.Before(*filter.DateFrom):
			continue
		case filter.DateTo != nil && !log.CreatedAt.Before(filter.DateTo.AddDate(0, 0, 1)):
			continue
		}
		d := r.decorate(log)
		if filter.Search != "" {
			notes := ""
			if d.Notes != nil {
				notes = *d.Notes
			}
			text := strings.Join([]string{d.Message, notes, d.PatientDetails.FirstName, d.PatientDetails.LastName, d.PatientDetails.EmployeeID}, " ")
			if !contains(text, filter.Search) {
				continue
			}
		}
		out = append(out, d)
	}
	asc := filter.SortOrder == "asc"
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			if asc {
				return a.ID < b.ID
			}
			return a.ID > b.ID
		}
		if asc {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return page(out, filter.Pagination), len(out), nil
}

func (r CommunicationRepository) ListSince(ctx context.Context, since time.Time) ([]model.CommunicationStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []model.CommunicationStat
	for _, log := range r.Communications {
		if log.CreatedAt.Before(since) {
			continue
		}
		out = append(out, model.CommunicationStat{
			Type:      log.Type,
			Outcome:   log.Outcome,
			UserName:  r.userName(log.UserID),
			CreatedAt: log.CreatedAt,
		})
	}
	return out, nil
}

func (r CommunicationRepository) FollowUpQueue(ctx context.Context, now time.Time) ([]*model.CommunicationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []*model.CommunicationLog
	for _, log := range r.Communications {
		if log.FollowUpDate == nil || log.FollowUpDate.After(now) {
			continue
		}
		if log.Outcome != nil && *log.Outcome == model.OutcomeResolved {
			continue
		}
		out = append(out, r.decorate(log))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FollowUpDate.Equal(*out[j].FollowUpDate) {
			return out[i].FollowUpDate.Before(*out[j].FollowUpDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r CommunicationRepository) LatestForPatient(ctx context.Context, patientID int64) (*model.CommunicationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var latest *model.CommunicationLog
	for _, log := range r.Communications {
		if log.PatientID != patientID {
			continue
		}
		if latest == nil || log.CreatedAt.After(latest.CreatedAt) ||
			(log.CreatedAt.Equal(latest.CreatedAt) && log.ID > latest.ID) {
			latest = log
		}
	}
	if latest == nil {
		return nil, errors.NotFound("communication", nil)
	}
	return r.decorate(latest), nil
}

// Stats

type StatsRepository struct{ *Store }

func (r StatsRepository) DashboardStats(ctx context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	stats := &model.DashboardStats{TotalPatients: len(r.Patients)}
	for _, reading := range r.Readings {
		if reading.IsAbnormal {
			stats.AbnormalReadings++
		}
		if !reading.RecordedAt.Before(dayStart) && reading.RecordedAt.Before(dayEnd) {
			stats.TodayReadings++
		}
	}
	for _, task := range r.Tasks {
		if task.Status == model.TaskStatusPending && contains(task.Title, "call") {
			stats.PendingCalls++
		}
	}
	return stats, nil
}

// Outbox

type OutboxRepository struct{ *Store }

func (r OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	cp := *event
	r.Events = append(r.Events, &cp)
	return nil
}

func (r OutboxRepository) ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []*model.OutboxEvent
	for _, e := range r.Events {
		if len(out) == limit {
			break
		}
		if e.Status == model.OutboxStatusPending && (e.RetryAt == nil || !e.RetryAt.After(r.Now())) {
			e.Status = model.OutboxStatusProcessing
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r OutboxRepository) find(id uuid.UUID) (*model.OutboxEvent, error) {
	for _, e := range r.Events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.NotFound("outbox event", nil)
}

func (r OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.find(id)
	if err != nil {
		return err
	}
	now := r.Now()
	e.Status = model.OutboxStatusProcessed
	e.ProcessedAt = &now
	return nil
}

func (r OutboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.find(id)
	if err != nil {
		return err
	}
	e.Status = model.OutboxStatusPending
	e.ErrorMessage = &errorMessage
	e.RetryCount++
	e.RetryAt = &retryAt
	return nil
}

func (r OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.find(id)
	if err != nil {
		return err
	}
	e.Status = model.OutboxStatusFailed
	e.ErrorMessage = &errorMessage
	e.RetryCount++
	return nil
}

func (r OutboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*model.OutboxEvent
	var deleted int64
	for _, e := range r.Events {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.Events = kept
	return deleted, nil
}

// EventsOfType returns the recorded outbox events of one type.
func (s *Store) EventsOfType(eventType string) []*model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.OutboxEvent
	for _, e := range s.Events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
