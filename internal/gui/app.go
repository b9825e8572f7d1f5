package gui

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/swissdoc/apply-agent/internal/api"
	"github.com/swissdoc/apply-agent/internal/catalog"
	"github.com/swissdoc/apply-agent/internal/config"
	"github.com/swissdoc/apply-agent/internal/engine"
	"github.com/swissdoc/apply-agent/internal/export"
	"github.com/swissdoc/apply-agent/internal/ingest"
	"github.com/swissdoc/apply-agent/internal/models"
)

// App represents the main GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	config     *config.Config

	engine   *engine.Engine
	catalog  *catalog.Catalog
	store    api.Store
	ingestor api.Ingestor
	auth     api.Authenticator

	session *engine.Session
	profile *models.UserProfile

	// UI Components
	loginStatusLabel *widget.Label
	loginBtn         *widget.Button
	jobTitleLabel    *widget.Label
	jobMetaLabel     *widget.Label
	jobDescText      *widget.Label
	toEntry          *widget.Entry
	subjectEntry     *widget.Entry
	bodyText         *widget.Entry
	draftBtn         *widget.Button
	skipBtn          *widget.Button
	sendBtn          *widget.Button
	statusLabel      *widget.Label

	manualTitleEntry   *widget.Entry
	manualToEntry      *widget.Entry
	manualSubjectEntry *widget.Entry
	manualBodyText     *widget.Entry

	uploadList  *widget.Label
	statsLabel  *widget.Label
	sentTable   *widget.Table
	exportBtn   *widget.Button
	sentRecords []models.SentRecord

	uploads []ingest.Upload

	currentJob *models.JobPosting
}

// NewApp creates a new GUI application
func NewApp(cfg *config.Config, eng *engine.Engine, cat *catalog.Catalog, store api.Store, ingestor api.Ingestor, auth api.Authenticator) *App {
	a := app.New()
	w := a.NewWindow("Apply Agent")
	w.Resize(fyne.NewSize(1000, 700))

	guiApp := &App{
		fyneApp:    a,
		mainWindow: w,
		config:     cfg,
		engine:     eng,
		catalog:    cat,
		store:      store,
		ingestor:   ingestor,
		auth:       auth,
	}

	guiApp.setupUI()
	return guiApp
}

// Run starts the GUI application
func (a *App) Run() {
	a.mainWindow.ShowAndRun()
}

// setupUI initializes all UI components
func (a *App) setupUI() {
	tabs := container.NewAppTabs(
		container.NewTabItem("Job Finder", a.createFinderTab()),
		container.NewTabItem("Manual Application", a.createManualTab()),
		container.NewTabItem("Documents", a.createDocumentsTab()),
		container.NewTabItem("Dashboard", a.createDashboardTab()),
		container.NewTabItem("Settings", a.createSettingsTab()),
	)

	a.mainWindow.SetContent(tabs)
}

// createFinderTab builds the main job traversal tab.
func (a *App) createFinderTab() fyne.CanvasObject {
	a.loginStatusLabel = widget.NewLabel("Gmail: Not Signed In")
	a.loginBtn = widget.NewButton("Sign in with Gmail", a.handleLogin)

	authSection := container.NewVBox(
		widget.NewLabel("Account"),
		container.NewHBox(a.loginStatusLabel, a.loginBtn),
	)

	a.jobTitleLabel = widget.NewLabel("Sign in to see the next job.")
	a.jobTitleLabel.TextStyle = fyne.TextStyle{Bold: true}
	a.jobMetaLabel = widget.NewLabel("")
	a.jobDescText = widget.NewLabel("")
	a.jobDescText.Wrapping = fyne.TextWrapWord

	jobSection := container.NewVBox(
		widget.NewLabel("Current Job"),
		a.jobTitleLabel,
		a.jobMetaLabel,
		a.jobDescText,
	)

	a.toEntry = widget.NewEntry()
	a.toEntry.Disable()
	a.subjectEntry = widget.NewEntry()
	a.subjectEntry.SetPlaceHolder("Draft an email to fill this in, or type your own subject")
	a.bodyText = widget.NewMultiLineEntry()
	a.bodyText.SetPlaceHolder("Email body")
	a.bodyText.SetMinRowsVisible(10)

	draftSection := container.NewVBox(
		widget.NewLabel("Application Email"),
		widget.NewForm(
			widget.NewFormItem("To", a.toEntry),
			widget.NewFormItem("Subject", a.subjectEntry),
			widget.NewFormItem("Body", a.bodyText),
		),
	)

	a.draftBtn = widget.NewButton("Draft Email", a.handleDraft)
	a.skipBtn = widget.NewButton("Skip Job", a.handleSkip)
	a.sendBtn = widget.NewButton("Send Application", a.handleSend)
	a.statusLabel = widget.NewLabel("")
	a.setFinderEnabled(false)

	return container.NewVScroll(container.NewVBox(
		authSection,
		widget.NewSeparator(),
		jobSection,
		widget.NewSeparator(),
		draftSection,
		container.NewHBox(a.draftBtn, a.skipBtn, a.sendBtn),
		a.statusLabel,
	))
}

// createManualTab builds the hand-entered application tab.
func (a *App) createManualTab() fyne.CanvasObject {
	a.manualTitleEntry = widget.NewEntry()
	a.manualTitleEntry.SetPlaceHolder("e.g., Assistenzarzt Chirurgie (optional)")
	a.manualToEntry = widget.NewEntry()
	a.manualToEntry.SetPlaceHolder("hr@spital.ch")
	a.manualSubjectEntry = widget.NewEntry()
	a.manualBodyText = widget.NewMultiLineEntry()
	a.manualBodyText.SetMinRowsVisible(10)

	sendBtn := widget.NewButton("Send Application", a.handleManualSend)

	return container.NewVScroll(container.NewVBox(
		widget.NewLabel("Apply to a job that is not in the catalog. The job list is not affected."),
		widget.NewForm(
			widget.NewFormItem("Job Title", a.manualTitleEntry),
			widget.NewFormItem("To", a.manualToEntry),
			widget.NewFormItem("Subject", a.manualSubjectEntry),
			widget.NewFormItem("Body", a.manualBodyText),
		),
		sendBtn,
	))
}

// createDocumentsTab builds the CV and attachments tab. The first added
// file is the CV; storing replaces everything previously uploaded.
func (a *App) createDocumentsTab() fyne.CanvasObject {
	a.uploadList = widget.NewLabel("No files selected.")

	addBtn := widget.NewButton("Add File...", func() {
		dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			defer uc.Close()

			path := uc.URI().Path()
			content, err := os.ReadFile(path)
			if err != nil {
				dialog.ShowError(fmt.Errorf("failed to read %s: %w", path, err), a.mainWindow)
				return
			}
			a.uploads = append(a.uploads, ingest.Upload{Name: filepath.Base(path), Content: content})
			a.refreshUploadList()
		}, a.mainWindow)
	})

	clearBtn := widget.NewButton("Clear", func() {
		a.uploads = nil
		a.refreshUploadList()
	})

	storeBtn := widget.NewButton("Store Files", a.handleStoreFiles)

	return container.NewVBox(
		widget.NewLabel("Upload your CV first, then any certificates. Storing replaces all previously saved files."),
		a.uploadList,
		container.NewHBox(addBtn, clearBtn, storeBtn),
	)
}

// createDashboardTab builds the stats and sent-log tab.
func (a *App) createDashboardTab() fyne.CanvasObject {
	a.statsLabel = widget.NewLabel("Sign in to load your dashboard.")

	a.sentTable = widget.NewTable(
		func() (int, int) {
			return len(a.sentRecords) + 1, 4 // +1 for header
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("Template")
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)
			if id.Row == 0 {
				headers := []string{"Sent At", "Job Title", "Recipient", "Subject"}
				if id.Col < len(headers) {
					label.SetText(headers[id.Col])
					label.TextStyle = fyne.TextStyle{Bold: true}
				}
			} else if id.Row-1 < len(a.sentRecords) {
				rec := a.sentRecords[id.Row-1]
				switch id.Col {
				case 0:
					label.SetText(rec.SentAt.Format("2006-01-02 15:04"))
				case 1:
					label.SetText(rec.JobTitle)
				case 2:
					label.SetText(rec.Recipient)
				case 3:
					label.SetText(rec.Subject)
				}
			}
		},
	)
	a.sentTable.SetColumnWidth(0, 140)
	a.sentTable.SetColumnWidth(1, 240)
	a.sentTable.SetColumnWidth(2, 220)
	a.sentTable.SetColumnWidth(3, 300)

	refreshBtn := widget.NewButton("Refresh", a.handleRefreshDashboard)
	a.exportBtn = widget.NewButton("Export to Excel", a.handleExport)
	a.exportBtn.Disable()

	return container.NewBorder(
		container.NewVBox(a.statsLabel, container.NewHBox(refreshBtn, a.exportBtn)),
		nil, nil, nil,
		container.NewScroll(a.sentTable),
	)
}

// createSettingsTab creates the settings tab
func (a *App) createSettingsTab() fyne.CanvasObject {
	projectEntry := widget.NewEntry()
	projectEntry.SetText(a.config.GoogleCloudProject)

	locationEntry := widget.NewEntry()
	locationEntry.SetText(a.config.GoogleCloudLocation)

	catalogEntry := widget.NewEntry()
	catalogEntry.SetText(a.config.CatalogPath)

	gmailCredsEntry := widget.NewEntry()
	gmailCredsEntry.SetText(a.config.GmailCredentialsPath)

	catalogBtn := widget.NewButton("Browse...", func() {
		dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
			if err == nil && uc != nil {
				catalogEntry.SetText(uc.URI().Path())
				uc.Close()
			}
		}, a.mainWindow)
	})

	gmailCredsBtn := widget.NewButton("Browse...", func() {
		dialog.ShowFileOpen(func(uc fyne.URIReadCloser, err error) {
			if err == nil && uc != nil {
				gmailCredsEntry.SetText(uc.URI().Path())
				uc.Close()
			}
		}, a.mainWindow)
	})

	form := widget.NewForm(
		widget.NewFormItem("Google Cloud Project", projectEntry),
		widget.NewFormItem("Google Cloud Location", locationEntry),
		widget.NewFormItem("Job Catalog", container.NewBorder(nil, nil, nil, catalogBtn, catalogEntry)),
		widget.NewFormItem("Gmail Credentials", container.NewBorder(nil, nil, nil, gmailCredsBtn, gmailCredsEntry)),
	)

	saveBtn := widget.NewButton("Save Settings", func() {
		a.config.GoogleCloudProject = projectEntry.Text
		a.config.GoogleCloudLocation = locationEntry.Text
		a.config.CatalogPath = catalogEntry.Text
		a.config.GmailCredentialsPath = gmailCredsEntry.Text

		if err := a.config.Save(); err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		a.config.ApplyToEnv()

		dialog.ShowInformation("Success", "Settings saved successfully", a.mainWindow)
	})

	validateBtn := widget.NewButton("Validate", func() {
		if err := a.config.Validate(); err != nil {
			dialog.ShowError(fmt.Errorf("validation failed: %w", err), a.mainWindow)
			return
		}
		dialog.ShowInformation("Success", "Configuration is valid", a.mainWindow)
	})

	return container.NewVBox(
		form,
		container.NewHBox(saveBtn, validateBtn),
	)
}

// handleLogin runs the OAuth flow in the background and loads the profile.
func (a *App) handleLogin() {
	progressDialog := dialog.NewCustomWithoutButtons("Signing In",
		widget.NewLabel("Authenticating with Gmail...\nCheck the console for the OAuth URL if your browser doesn't open."),
		a.mainWindow)
	progressDialog.Show()
	a.loginBtn.Disable()

	go func() {
		ctx := context.Background()
		mailer, err := a.auth(ctx)
		if err != nil {
			fyne.Do(func() {
				progressDialog.Hide()
				a.loginBtn.Enable()
				dialog.ShowError(fmt.Errorf("login failed: %w", err), a.mainWindow)
			})
			return
		}

		profile, err := a.store.Profile(ctx, mailer.Email())
		if err != nil {
			fyne.Do(func() {
				progressDialog.Hide()
				a.loginBtn.Enable()
				dialog.ShowError(fmt.Errorf("failed to load profile: %w", err), a.mainWindow)
			})
			return
		}

		if tok := mailer.TokenB64(); tok != "" {
			if err := a.store.SaveToken(ctx, mailer.Email(), tok); err != nil {
				log.Printf("failed to mirror oauth token for %s: %v", mailer.Email(), err)
			}
		}

		fyne.Do(func() {
			progressDialog.Hide()
			a.loginBtn.Enable()
			a.session = engine.NewSession("gui", mailer.Email(), mailer)
			a.profile = profile
			a.loginStatusLabel.SetText("Gmail: " + mailer.Email())
			a.setFinderEnabled(true)
			a.showNextJob()
			a.handleRefreshDashboard()
		})
	}()
}

// showNextJob selects the next actionable posting and fills the finder.
func (a *App) showNextJob() {
	a.currentJob = a.engine.SelectNext(a.profile, a.catalog)
	a.subjectEntry.SetText("")
	a.bodyText.SetText("")

	if a.currentJob == nil {
		a.jobTitleLabel.SetText("All jobs handled. Nothing left to review.")
		a.jobMetaLabel.SetText("")
		a.jobDescText.SetText("")
		a.toEntry.SetText("")
		a.setFinderEnabled(false)
		return
	}

	a.jobTitleLabel.SetText(a.currentJob.Title)
	a.jobMetaLabel.SetText(fmt.Sprintf("%s (%s)", a.currentJob.Hospital, a.currentJob.Canton))
	a.jobDescText.SetText(a.currentJob.Description)
	a.toEntry.SetText(a.currentJob.ContactEmail)
	a.statusLabel.SetText("")
}

// handleDraft composes the application email in the background.
func (a *App) handleDraft() {
	if a.currentJob == nil {
		return
	}
	if a.profile.CVText == "" {
		dialog.ShowError(fmt.Errorf("no CV stored yet; upload your documents first"), a.mainWindow)
		return
	}

	job := *a.currentJob
	a.draftBtn.Disable()
	a.statusLabel.SetText("Drafting email...")

	go func() {
		draft, err := a.engine.Draft(context.Background(), a.session, a.profile, job)

		fyne.Do(func() {
			a.draftBtn.Enable()
			if err != nil {
				a.statusLabel.SetText("Draft failed; you can retry.")
				dialog.ShowError(err, a.mainWindow)
				return
			}
			a.subjectEntry.SetText(draft.Subject)
			a.bodyText.SetText(draft.Body)
			a.statusLabel.SetText("Draft ready. Review and edit before sending.")
		})
	}()
}

// handleSkip marks the current job as handled without sending.
func (a *App) handleSkip() {
	if a.currentJob == nil {
		return
	}
	job := *a.currentJob

	go func() {
		err := a.engine.Skip(context.Background(), a.session, a.profile, job)

		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, a.mainWindow)
				return
			}
			a.showNextJob()
		})
	}()
}

// handleSend commits the send for the current job with the edited draft.
func (a *App) handleSend() {
	if a.currentJob == nil {
		return
	}
	job := *a.currentJob
	subject, body := a.subjectEntry.Text, a.bodyText.Text

	a.sendBtn.Disable()
	a.statusLabel.SetText("Sending...")

	go func() {
		_, err := a.engine.CommitSend(context.Background(), a.session, a.profile, job, job.ContactEmail, subject, body)

		fyne.Do(func() {
			a.sendBtn.Enable()
			if err != nil {
				a.statusLabel.SetText("Send failed; the draft is preserved.")
				dialog.ShowError(err, a.mainWindow)
				return
			}

			a.fyneApp.SendNotification(&fyne.Notification{
				Title:   "Application Sent",
				Content: fmt.Sprintf("Sent to %s", job.ContactEmail),
			})
			a.showNextJob()
			a.handleRefreshDashboard()
		})
	}()
}

// handleManualSend sends an application for a hand-entered job.
func (a *App) handleManualSend() {
	if a.session == nil {
		dialog.ShowError(fmt.Errorf("sign in first"), a.mainWindow)
		return
	}

	title := a.manualTitleEntry.Text
	to := catalog.NormalizeContact(a.manualToEntry.Text)
	subject, body := a.manualSubjectEntry.Text, a.manualBodyText.Text

	go func() {
		_, err := a.engine.CommitSendManual(context.Background(), a.session, a.profile, title, to, subject, body)

		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, a.mainWindow)
				return
			}
			a.manualTitleEntry.SetText("")
			a.manualToEntry.SetText("")
			a.manualSubjectEntry.SetText("")
			a.manualBodyText.SetText("")
			dialog.ShowInformation("Sent", "Application sent to "+to, a.mainWindow)
			a.handleRefreshDashboard()
		})
	}()
}

// handleStoreFiles runs the ingestion pipeline over the selected files.
func (a *App) handleStoreFiles() {
	if a.session == nil {
		dialog.ShowError(fmt.Errorf("sign in first"), a.mainWindow)
		return
	}
	if len(a.uploads) == 0 {
		dialog.ShowError(fmt.Errorf("no files selected"), a.mainWindow)
		return
	}

	uploads := a.uploads
	progressDialog := dialog.NewCustomWithoutButtons("Storing Documents",
		widget.NewLabel("Extracting and storing your documents...\nAn English CV is translated to German first."),
		a.mainWindow)
	progressDialog.Show()

	go func() {
		res, err := a.ingestor.Process(context.Background(), a.session.Email, uploads)

		fyne.Do(func() {
			progressDialog.Hide()
			if err != nil {
				dialog.ShowError(err, a.mainWindow)
				return
			}
			a.profile.CVText = res.CVText
			a.profile.Attachments = res.Attachments
			a.uploads = nil
			a.refreshUploadList()

			msg := fmt.Sprintf("Stored %d file(s).", len(res.Attachments))
			if res.Translated {
				msg += " The CV was translated to German."
			}
			dialog.ShowInformation("Success", msg, a.mainWindow)
		})
	}()
}

// handleRefreshDashboard reloads the sent log.
func (a *App) handleRefreshDashboard() {
	if a.session == nil {
		return
	}
	email := a.session.Email

	go func() {
		records, err := a.store.SentRecords(context.Background(), email)

		fyne.Do(func() {
			if err != nil {
				log.Printf("failed to load sent log: %v", err)
				return
			}
			a.sentRecords = records
			a.sentTable.Refresh()
			a.statsLabel.SetText(fmt.Sprintf("Sent: %d    Skipped: %d",
				a.profile.Stats.SentCount, a.profile.Stats.SkippedCount))
			if len(records) > 0 {
				a.exportBtn.Enable()
			}
		})
	}()
}

// handleExport saves the dashboard as an Excel workbook.
func (a *App) handleExport() {
	if len(a.sentRecords) == 0 {
		dialog.ShowError(fmt.Errorf("no sent applications to export"), a.mainWindow)
		return
	}

	timestamp := time.Now().Format("2006-01-02_150405")
	defaultName := fmt.Sprintf("Applications_%s.xlsx", timestamp)

	saveDialog := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if uc == nil {
			return // User canceled
		}
		defer uc.Close()

		b, err := export.SentApplications(a.session.Email, a.profile.Stats, a.sentRecords)
		if err != nil {
			dialog.ShowError(fmt.Errorf("failed to export: %w", err), a.mainWindow)
			return
		}
		if _, err := uc.Write(b); err != nil {
			dialog.ShowError(fmt.Errorf("failed to write workbook: %w", err), a.mainWindow)
			return
		}

		dialog.ShowInformation("Success", "Exported to "+filepath.Base(uc.URI().Path()), a.mainWindow)
	}, a.mainWindow)
	saveDialog.SetFileName(defaultName)
	saveDialog.Show()
}

func (a *App) refreshUploadList() {
	if len(a.uploads) == 0 {
		a.uploadList.SetText("No files selected.")
		return
	}
	text := "Files (first is the CV):\n"
	for i, u := range a.uploads {
		text += fmt.Sprintf("  %d. %s\n", i+1, u.Name)
	}
	a.uploadList.SetText(text)
}

func (a *App) setFinderEnabled(enabled bool) {
	if enabled {
		a.draftBtn.Enable()
		a.skipBtn.Enable()
		a.sendBtn.Enable()
	} else {
		a.draftBtn.Disable()
		a.skipBtn.Disable()
		a.sendBtn.Disable()
	}
}
