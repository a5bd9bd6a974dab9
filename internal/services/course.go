package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/onboardhub/backend/internal/metrics"
	"github.com/onboardhub/backend/internal/models"
	"github.com/onboardhub/backend/pkg/logger"
	"gorm.io/gorm"
)

// maxCourseErrorLen matches the size of projects.course_error.
const maxCourseErrorLen = 500

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// QuizDescriptor is the quiz part of a generated module.
type QuizDescriptor struct {
	Title     string                `json:"title"`
	Questions []models.QuizQuestion `json:"questions"`
}

// ModuleDescriptor is one generated learning module before it is stored.
type ModuleDescriptor struct {
	Title   string         `json:"title"`
	Summary string         `json:"summary"`
	Quiz    QuizDescriptor `json:"quiz"`
}

// CourseSource is what a course is generated from.
type CourseSource struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Documentation string `json:"documentation"`
}

// BuildCoursePrompt renders the generation prompt. Empty fields are left out.
func BuildCoursePrompt(src CourseSource) string {
	var b strings.Builder
	b.WriteString("You are creating an onboarding course for new members of a software project.\n")
	b.WriteString("Split the material into 4 to 6 learning modules. Each module needs a short title, ")
	b.WriteString("a summary of a few paragraphs and a quiz of 3 multiple-choice questions.\n\n")

	if t := strings.TrimSpace(src.Title); t != "" {
		fmt.Fprintf(&b, "Project name: %s\n", t)
	}
	if d := strings.TrimSpace(src.Description); d != "" {
		fmt.Fprintf(&b, "Project description: %s\n", d)
	}
	if doc := strings.TrimSpace(src.Documentation); doc != "" {
		fmt.Fprintf(&b, "\nProject documentation:\n%s\n", doc)
	}

	b.WriteString(`
Respond with JSON only, in exactly this shape:
{"modules":[{"title":"...","summary":"...","quiz":{"title":"...","questions":[{"question":"...","options":["...","...","...","..."],"correctAnswer":0,"explanation":"..."}]}}]}
`)
	return b.String()
}

// ParseModules extracts the module list from generator output. The JSON may be
// wrapped in a fenced code block.
func ParseModules(text string) ([]ModuleDescriptor, error) {
	payload := strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(payload); m != nil {
		payload = strings.TrimSpace(m[1])
	}

	var doc struct {
		Modules []struct {
			Title   string `json:"title"`
			Summary string `json:"summary"`
			Quiz    *struct {
				Title     string                `json:"title"`
				Questions []models.QuizQuestion `json:"questions"`
			} `json:"quiz"`
		} `json:"modules"`
	}
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %v", ErrFormat, err)
	}
	if len(doc.Modules) == 0 {
		return nil, fmt.Errorf("%w: no modules in response", ErrFormat)
	}

	modules := make([]ModuleDescriptor, 0, len(doc.Modules))
	for i, m := range doc.Modules {
		title := strings.TrimSpace(m.Title)
		summary := strings.TrimSpace(m.Summary)
		if title == "" || summary == "" {
			return nil, fmt.Errorf("%w: module %d is missing title or summary", ErrFormat, i)
		}
		if m.Quiz == nil || len(m.Quiz.Questions) == 0 {
			return nil, fmt.Errorf("%w: module %d has no quiz questions", ErrFormat, i)
		}
		quizTitle := strings.TrimSpace(m.Quiz.Title)
		if quizTitle == "" {
			quizTitle = title + " Quiz"
		}
		modules = append(modules, ModuleDescriptor{
			Title:   title,
			Summary: summary,
			Quiz:    QuizDescriptor{Title: quizTitle, Questions: m.Quiz.Questions},
		})
	}
	return modules, nil
}

// FallbackModules is the placeholder course used when the generator is unreachable.
func FallbackModules(title string) []ModuleDescriptor {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "the project"
	}
	return []ModuleDescriptor{
		{
			Title:   "Welcome to " + name,
			Summary: fmt.Sprintf("This module introduces %s, its goals and the people working on it. Ask your team for the project overview and read the documentation section of this workspace.", name),
			Quiz: QuizDescriptor{
				Title: "Welcome Quiz",
				Questions: []models.QuizQuestion{{
					Question:      "Where should you look first to learn about this project?",
					Options:       []string{"The project documentation", "Random source files", "Old chat logs", "Nowhere"},
					CorrectAnswer: 0,
					Explanation:   "The documentation is the maintained entry point for new members.",
				}},
			},
		},
		{
			Title:   "Getting Started",
			Summary: "Set up your development environment, get access to the repositories and tools the team uses, and pick a first task with your onboarding buddy.",
			Quiz: QuizDescriptor{
				Title: "Getting Started Quiz",
				Questions: []models.QuizQuestion{{
					Question:      "Who can help you pick a first task?",
					Options:       []string{"Your onboarding buddy or a project admin", "Nobody", "An external vendor", "The build server"},
					CorrectAnswer: 0,
				}},
			},
		},
	}
}

// persistModules writes topics with their summary and quiz in index order.
// Callers run it inside a transaction.
func persistModules(tx *gorm.DB, projectID uint, modules []ModuleDescriptor) error {
	for i, m := range modules {
		topic := &models.CourseTopic{ProjectID: projectID, Title: m.Title, OrderIndex: i}
		if err := tx.Create(topic).Error; err != nil {
			return fmt.Errorf("insert topic %d: %w", i, err)
		}
		if err := tx.Create(&models.CourseSummary{TopicID: topic.ID, Content: m.Summary}).Error; err != nil {
			return fmt.Errorf("insert summary %d: %w", i, err)
		}
		questions := m.Quiz.Questions
		if questions == nil {
			questions = []models.QuizQuestion{}
		}
		if err := tx.Create(&models.CourseQuiz{TopicID: topic.ID, Title: m.Quiz.Title, Questions: questions}).Error; err != nil {
			return fmt.Errorf("insert quiz %d: %w", i, err)
		}
	}
	return nil
}

// deleteCourse removes all topics of a project along with their summaries and quizzes.
func deleteCourse(tx *gorm.DB, projectID uint) error {
	var topicIDs []uint
	if err := tx.Model(&models.CourseTopic{}).Where("project_id = ?", projectID).Pluck("id", &topicIDs).Error; err != nil {
		return err
	}
	if len(topicIDs) == 0 {
		return nil
	}
	if err := tx.Where("topic_id IN ?", topicIDs).Delete(&models.CourseQuiz{}).Error; err != nil {
		return err
	}
	if err := tx.Where("topic_id IN ?", topicIDs).Delete(&models.CourseSummary{}).Error; err != nil {
		return err
	}
	return tx.Where("project_id = ?", projectID).Delete(&models.CourseTopic{}).Error
}

// loadCourse returns topics ordered by order_index with summary and quiz attached.
func loadCourse(db *gorm.DB, projectID uint) ([]models.CourseTopic, error) {
	var topics []models.CourseTopic
	if err := db.Where("project_id = ?", projectID).Order("order_index ASC, id ASC").Find(&topics).Error; err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return []models.CourseTopic{}, nil
	}

	ids := make([]uint, len(topics))
	for i, t := range topics {
		ids[i] = t.ID
	}

	var summaries []models.CourseSummary
	if err := db.Where("topic_id IN ?", ids).Find(&summaries).Error; err != nil {
		return nil, err
	}
	var quizzes []models.CourseQuiz
	if err := db.Where("topic_id IN ?", ids).Find(&quizzes).Error; err != nil {
		return nil, err
	}

	summaryByTopic := make(map[uint]*models.CourseSummary, len(summaries))
	for i := range summaries {
		summaryByTopic[summaries[i].TopicID] = &summaries[i]
	}
	quizByTopic := make(map[uint]*models.CourseQuiz, len(quizzes))
	for i := range quizzes {
		quizByTopic[quizzes[i].TopicID] = &quizzes[i]
	}
	for i := range topics {
		topics[i].Summary = summaryByTopic[topics[i].ID]
		topics[i].Quiz = quizByTopic[topics[i].ID]
	}
	return topics, nil
}

// documentationText flattens the documentation sections into prompt text.
func documentationText(doc *models.ProjectDocumentation) string {
	if doc.Empty() {
		return ""
	}
	sections := []struct{ heading, body string }{
		{"Overview", doc.Overview},
		{"Setup", doc.Setup},
		{"Architecture", doc.Architecture},
		{"Conventions", doc.Conventions},
		{"Resources", doc.Resources},
	}
	var parts []string
	for _, s := range sections {
		if body := strings.TrimSpace(s.body); body != "" {
			parts = append(parts, "## "+s.heading+"\n"+body)
		}
	}
	return strings.Join(parts, "\n\n")
}

// CourseService generates, stores and serves onboarding courses.
type CourseService struct {
	db     *gorm.DB
	gen    Generator
	events *CourseEventHub
	queue  TaskQueue
}

func NewCourseService(db *gorm.DB, gen Generator, events *CourseEventHub) *CourseService {
	return &CourseService{db: db, gen: gen, events: events}
}

// SetQueue wires the queue used by RequestGeneration.
func (s *CourseService) SetQueue(q TaskQueue) {
	s.queue = q
}

// Generate asks the generator for modules. Generator failures are returned
// as-is; unusable output fails with ErrFormat.
func (s *CourseService) Generate(ctx context.Context, src CourseSource) ([]ModuleDescriptor, error) {
	if s.gen == nil {
		return nil, ErrGeneratorUnavailable
	}
	text, err := s.gen.Generate(ctx, BuildCoursePrompt(src))
	if err != nil {
		return nil, fmt.Errorf("generate course: %w", err)
	}
	return ParseModules(text)
}

// Persist stores modules for a project in one transaction.
func (s *CourseService) Persist(projectID uint, modules []ModuleDescriptor) error {
	if projectID == 0 || len(modules) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return persistModules(tx, projectID, modules)
	})
}

// Fetch returns the ordered course of a project. Members only.
func (s *CourseService) Fetch(projectID, actorID uint) ([]models.CourseTopic, error) {
	if projectID == 0 {
		return []models.CourseTopic{}, nil
	}
	if _, err := requireMember(s.db, projectID, actorID); err != nil {
		return nil, err
	}
	return loadCourse(s.db, projectID)
}

// DeleteAll removes the whole course of a project. Admins only.
func (s *CourseService) DeleteAll(projectID, actorID uint) error {
	if projectID == 0 {
		return nil
	}
	if _, err := requireAdmin(s.db, projectID, actorID); err != nil {
		return err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteCourse(tx, projectID); err != nil {
			return err
		}
		return setCourseStatus(tx, projectID, models.CourseStatusNone, "")
	})
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.publish(CourseEvent{ProjectID: projectID, Status: models.CourseStatusNone})
	logger.Infof("[Course] User %d deleted course of project %d", actorID, projectID)
	return nil
}

// Regenerate builds a new course and swaps it in for the current one. The
// existing course is kept when generation fails. Admins only.
func (s *CourseService) Regenerate(ctx context.Context, projectID, actorID uint) ([]models.CourseTopic, error) {
	if _, err := requireAdmin(s.db, projectID, actorID); err != nil {
		return nil, err
	}
	return s.run(ctx, projectID, false)
}

// RequestGeneration queues a generation run for the project. Admins only.
func (s *CourseService) RequestGeneration(projectID, actorID uint, reason string) error {
	if _, err := requireAdmin(s.db, projectID, actorID); err != nil {
		return err
	}
	if s.queue == nil {
		return fmt.Errorf("%w: no task queue configured", ErrGeneratorUnavailable)
	}
	if reason != CourseReasonCreate {
		reason = CourseReasonRegenerate
	}
	return s.queue.Enqueue(&CourseTask{ProjectID: projectID, RequestedBy: actorID, Reason: reason})
}

// Process is the queue processor for course tasks.
func (s *CourseService) Process(ctx context.Context, task *CourseTask) error {
	_, err := s.run(ctx, task.ProjectID, task.Reason == CourseReasonCreate)
	return err
}

// Preview generates modules without storing anything. The bool reports
// whether the placeholder course was used.
func (s *CourseService) Preview(ctx context.Context, src CourseSource) ([]ModuleDescriptor, bool, error) {
	if strings.TrimSpace(src.Title) == "" {
		return nil, false, fmt.Errorf("%w: title is required", ErrValidation)
	}
	modules, err := s.Generate(ctx, src)
	if err == nil {
		return modules, false, nil
	}
	if errors.Is(err, ErrFormat) {
		return nil, false, err
	}
	logger.Warnf("[Course] Preview generation failed, using placeholder modules: %v", err)
	return FallbackModules(src.Title), true, nil
}

func (s *CourseService) source(projectID uint) (CourseSource, error) {
	var project models.Project
	err := s.db.First(&project, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CourseSource{}, fmt.Errorf("project %w", ErrNotFound)
	}
	if err != nil {
		return CourseSource{}, err
	}
	doc, err := loadDocumentation(s.db, projectID)
	if err != nil {
		return CourseSource{}, err
	}
	return CourseSource{
		Title:         project.Name,
		Description:   project.Description,
		Documentation: documentationText(doc),
	}, nil
}

// run moves the project through generating and swaps in the new course.
// With fallback set, an unreachable generator yields the placeholder course.
func (s *CourseService) run(ctx context.Context, projectID uint, fallback bool) ([]models.CourseTopic, error) {
	src, err := s.source(projectID)
	if err != nil {
		return nil, err
	}

	if err := setCourseStatus(s.db, projectID, models.CourseStatusGenerating, ""); err != nil {
		return nil, err
	}
	s.publish(CourseEvent{ProjectID: projectID, Status: models.CourseStatusGenerating})

	usedFallback := false
	modules, err := s.Generate(ctx, src)
	switch {
	case err == nil:
	case errors.Is(err, ErrFormat):
		metrics.CourseGenerations.WithLabelValues("format_error").Inc()
		s.fail(projectID, err)
		return nil, err
	case fallback:
		logger.Warnf("[Course] Generator failed for project %d, using placeholder modules: %v", projectID, err)
		modules = FallbackModules(src.Title)
		usedFallback = true
	default:
		metrics.CourseGenerations.WithLabelValues("failed").Inc()
		s.fail(projectID, err)
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteCourse(tx, projectID); err != nil {
			return err
		}
		if err := persistModules(tx, projectID, modules); err != nil {
			return err
		}
		return setCourseStatus(tx, projectID, models.CourseStatusPopulated, "")
	})
	if err != nil {
		metrics.CourseGenerations.WithLabelValues("failed").Inc()
		s.fail(projectID, err)
		return nil, fmt.Errorf("store course: %w", err)
	}

	outcome := "populated"
	if usedFallback {
		outcome = "fallback"
	}
	metrics.CourseGenerations.WithLabelValues(outcome).Inc()
	s.publish(CourseEvent{ProjectID: projectID, Status: models.CourseStatusPopulated, Modules: len(modules), Fallback: usedFallback})
	logger.Infof("[Course] Project %d course populated with %d modules (fallback=%v)", projectID, len(modules), usedFallback)

	return loadCourse(s.db, projectID)
}

func (s *CourseService) fail(projectID uint, cause error) {
	msg := truncateRunes(cause.Error(), maxCourseErrorLen)
	if err := setCourseStatus(s.db, projectID, models.CourseStatusFailed, msg); err != nil {
		logger.Errorf("[Course] Failed to record failure for project %d: %v", projectID, err)
	}
	s.publish(CourseEvent{ProjectID: projectID, Status: models.CourseStatusFailed, Error: msg})
	logger.Warnf("[Course] Generation failed for project %d: %v", projectID, cause)
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (s *CourseService) publish(ev CourseEvent) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}

func setCourseStatus(db *gorm.DB, projectID uint, status models.CourseStatus, errMsg string) error {
	return db.Model(&models.Project{}).Where("id = ?", projectID).
		Updates(map[string]interface{}{"course_status": status, "course_error": errMsg}).Error
}
