package application

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/dfryer1193/rhyon/article/domain"
	"github.com/dfryer1193/rhyon/internal/metrics"
	"github.com/dfryer1193/rhyon/shared/apperr"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const nullCommit = "0000000000000000000000000000000000000000"

// ArticleStore is the subset of ArticleService the sync needs.
type ArticleStore interface {
	FindArticleBySlug(ctx context.Context, slug string) (*domain.Article, error)
	CreateArticle(ctx context.Context, in CreateArticleInput) (*domain.Article, error)
	UpdateArticle(ctx context.Context, slug string, in UpdateArticleInput) (*domain.Article, error)
	PublishArticle(ctx context.Context, slug string) (*domain.Article, error)
	UnpublishArticle(ctx context.Context, slug string) (*domain.Article, error)
}

var _ ArticleStore = (*ArticleService)(nil)

type fileSet map[string]struct{}

// SyncService keeps articles in step with markdown files pushed to a git repository.
type SyncService struct {
	sourceRepo     domain.SourceRepository
	markdown       MarkdownRenderer
	articles       ArticleStore
	mainBranchName string
	articlePath    *regexp.Regexp

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
}

// NewSyncService watches files named <contentDir>/<slug>.md.
func NewSyncService(articles ArticleStore, sourceRepo domain.SourceRepository, markdown MarkdownRenderer, mainBranchName string, contentDir string) *SyncService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncService{
		sourceRepo:     sourceRepo,
		markdown:       markdown,
		articles:       articles,
		mainBranchName: mainBranchName,
		articlePath:    articlePathRegex(contentDir),
		ctx:            ctx,
		cancel:         cancel,
		wg:             &sync.WaitGroup{},
	}
}

func articlePathRegex(contentDir string) *regexp.Regexp {
	if contentDir == "" {
		return regexp.MustCompile(`^([^/]+)\.md$`)
	}
	return regexp.MustCompile(`^` + regexp.QuoteMeta(contentDir) + `/([^/]+)\.md$`)
}

// Close cancels in-flight workers and waits for them to return.
func (s *SyncService) Close() error {
	s.cancel()
	s.wg.Wait()

	return nil
}

// Wait blocks until every worker spawned so far has finished.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// HandlePushEvent processes a GitHub push event and updates articles accordingly.
// It returns once the event's commits have been analysed; file processing runs on
// background workers bound to the service's lifecycle context, not the request context.
func (s *SyncService) HandlePushEvent(evt *github.PushEvent) error {
	var commits []*github.RepositoryCommit
	var err error

	if evt.GetBefore() != "" && evt.GetBefore() != nullCommit {
		commits, err = s.sourceRepo.GetCommitsInRange(s.ctx, evt.GetBefore(), evt.GetAfter())
		if err != nil {
			return fmt.Errorf("failed to get commits in range %s...%s: %w", evt.GetBefore(), evt.GetAfter(), err)
		}
	} else {
		// New branch or first commit - just get the head commit
		headCommit, err := s.sourceRepo.GetCommit(s.ctx, evt.GetAfter())
		if err != nil {
			return fmt.Errorf("failed to get commit %s: %w", evt.GetAfter(), err)
		}
		commits = []*github.RepositoryCommit{headCommit}
	}

	filesToProcess, filesToRemove, err := s.analyzeCommitFiles(commits)
	if err != nil {
		return fmt.Errorf("failed to analyze commits: %w", err)
	}

	isMainBranch := evt.GetRef() == "refs/heads/"+s.mainBranchName

	log.Info().
		Str("ref", evt.GetRef()).
		Int("changed", len(filesToProcess)).
		Int("removed", len(filesToRemove)).
		Msg("Handling push event")

	if isMainBranch {
		for _, filePath := range lo.Keys(filesToRemove) {
			slug := s.extractSlug(filePath)
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.unpublishArticle(s.ctx, slug)
			}()
		}
	}

	for filePath, commit := range filesToProcess {
		slug := s.extractSlug(filePath)
		if slug == "" {
			continue
		}

		// Use the commit SHA instead of ref to get the exact file version
		commitSHA := commit.GetSHA()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.processArticleFile(s.ctx, slug, filePath, commitSHA, isMainBranch)
		}()
	}

	return nil
}

// analyzeCommitFiles iterates through commits to determine which files were changed and which were removed.
func (s *SyncService) analyzeCommitFiles(commits []*github.RepositoryCommit) (map[string]*github.RepositoryCommit, fileSet, error) {
	filesToProcess := make(map[string]*github.RepositoryCommit)
	filesToRemove := make(fileSet)

	for _, commitSummary := range commits {
		fullCommit, err := s.sourceRepo.GetCommit(s.ctx, commitSummary.GetSHA())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get full commit %s: %w", commitSummary.GetSHA(), err)
		}

		for _, file := range fullCommit.Files {
			s.handleCommitFile(file.GetFilename(), file.GetStatus(), file.GetPreviousFilename(), fullCommit, filesToProcess, filesToRemove)
		}
	}
	return filesToProcess, filesToRemove, nil
}

// handleCommitFile folds one file change into the pending sets. Commits arrive
// oldest first, so a later change to a path overrides an earlier one.
func (s *SyncService) handleCommitFile(
	path string,
	status string,
	previousPath string,
	commit *github.RepositoryCommit,
	filesToProcess map[string]*github.RepositoryCommit,
	filesToRemove fileSet,
) {
	currentIsArticle := s.isArticleFile(path)
	previousIsArticle := s.isArticleFile(previousPath)

	if !currentIsArticle && !previousIsArticle {
		return
	}

	switch status {
	case "added", "modified", "changed":
		if currentIsArticle {
			filesToProcess[path] = commit
			delete(filesToRemove, path)
		}
	case "removed":
		if currentIsArticle {
			filesToRemove[path] = struct{}{}
			delete(filesToProcess, path)
		}
	case "renamed":
		if previousIsArticle {
			filesToRemove[previousPath] = struct{}{}
			delete(filesToProcess, previousPath)
		}
		if currentIsArticle {
			filesToProcess[path] = commit
			delete(filesToRemove, path)
		}
	}
}

// processArticleFile creates or updates the article backed by a single file and
// publishes it when the push landed on the main branch.
func (s *SyncService) processArticleFile(ctx context.Context, slug string, path string, commitSHA string, isMainBranch bool) {
	if ctx.Err() != nil {
		return
	}

	markdown, err := s.sourceRepo.GetFileContents(ctx, path, commitSHA)
	if err != nil {
		log.Error().Err(err).Str("path", path).Str("commitSHA", commitSHA).Msg("Failed to get file contents")
		metrics.SyncedFiles.WithLabelValues("failed").Inc()
		return
	}

	rendered, err := s.markdown.Render(markdown)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to render markdown")
		metrics.SyncedFiles.WithLabelValues("failed").Inc()
		return
	}

	content := stripTitle(markdown)
	var summary *string
	if rendered.Snippet != "" {
		summary = &rendered.Snippet
	}

	existing, err := s.articles.FindArticleBySlug(ctx, slug)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("Failed to look up article")
		metrics.SyncedFiles.WithLabelValues("failed").Inc()
		return
	}

	if existing == nil {
		_, err = s.articles.CreateArticle(ctx, CreateArticleInput{
			Title:   rendered.Title,
			Slug:    &slug,
			Summary: summary,
			Content: content,
		})
	} else {
		_, err = s.articles.UpdateArticle(ctx, slug, UpdateArticleInput{
			Title:             &rendered.Title,
			Summary:           summary,
			Content:           &content,
			RegenerateSummary: summary == nil,
		})
	}
	if err != nil {
		logSyncError(err, slug, "Failed to save article")
		return
	}

	if isMainBranch {
		if _, err := s.articles.PublishArticle(ctx, slug); err != nil {
			logSyncError(err, slug, "Failed to publish article")
			return
		}
	}

	metrics.SyncedFiles.WithLabelValues("synced").Inc()
}

func (s *SyncService) unpublishArticle(ctx context.Context, slug string) {
	if ctx.Err() != nil {
		return
	}

	article, err := s.articles.FindArticleBySlug(ctx, slug)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("Failed to look up article")
		metrics.SyncedFiles.WithLabelValues("failed").Inc()
		return
	}
	if article == nil || !article.IsPublished() {
		log.Debug().Str("slug", slug).Msg("Removed file has no published article")
		return
	}

	if _, err := s.articles.UnpublishArticle(ctx, slug); err != nil {
		logSyncError(err, slug, "Failed to unpublish article")
		return
	}

	metrics.SyncedFiles.WithLabelValues("unpublished").Inc()
}

func logSyncError(err error, slug string, msg string) {
	metrics.SyncedFiles.WithLabelValues("failed").Inc()
	if apperr.IsValidation(err) {
		log.Warn().Err(err).Str("slug", slug).Msg(msg)
		return
	}
	log.Error().Err(err).Str("slug", slug).Msg(msg)
}

func (s *SyncService) isArticleFile(path string) bool {
	return s.articlePath.MatchString(path)
}

// extractSlug returns the file's base name, e.g. "articles/my-post.md" -> "my-post".
func (s *SyncService) extractSlug(path string) string {
	matches := s.articlePath.FindStringSubmatch(path)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}
