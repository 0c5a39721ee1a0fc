// Package content holds the static copy of the portfolio page.
package content

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Zachkp/zach-portfolio/internal/greeting"
)

// DefaultAge is the number the about section counts up to.
const DefaultAge = 26

// Project is one card of the project showcase.
type Project struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Tech        []string `yaml:"tech" json:"tech"`
}

// Job is one entry of the career timeline, work or school.
type Job struct {
	Title     string   `yaml:"title" json:"title"`
	Company   string   `yaml:"company" json:"company"`
	StartDate string   `yaml:"start_date" json:"start_date"`
	EndDate   string   `yaml:"end_date" json:"end_date"`
	LogoPath  string   `yaml:"logo_path" json:"logo_path"`
	Bullets   []string `yaml:"bullets" json:"bullets"`
}

// Cert is one certification.
type Cert struct {
	Name     string   `yaml:"name" json:"name"`
	Issuer   string   `yaml:"issuer" json:"issuer"`
	Date     string   `yaml:"date" json:"date"`
	LogoPath string   `yaml:"logo_path" json:"logo_path"`
	Details  []string `yaml:"details" json:"details"`
}

// TechGroup is one row of the tech-stack marquee.
type TechGroup struct {
	Name  string   `yaml:"name" json:"name"`
	Items []string `yaml:"items" json:"items"`
}

// Content is everything the page shows.
type Content struct {
	Name           string           `yaml:"name" json:"name"`
	Headline       string           `yaml:"headline" json:"headline"`
	AboutMe        string           `yaml:"about_me" json:"about_me"`
	Age            int              `yaml:"age" json:"age"`
	Email          string           `yaml:"email" json:"email"`
	Greetings      []greeting.Entry `yaml:"greetings" json:"greetings"`
	Timeline       []Job            `yaml:"timeline" json:"timeline"`
	Education      []Job            `yaml:"education" json:"education"`
	Projects       []Project        `yaml:"projects" json:"projects"`
	Certifications []Cert           `yaml:"certifications" json:"certifications"`
	TechStack      []TechGroup      `yaml:"tech_stack" json:"tech_stack"`
}

var (
	AboutMe = `I love building software that's useful and fun, and I'm always curious about how things
	work behind the scenes. Most projects start as a small idea and turn into a chance to learn a new
	language, try a new tool, or chase down a tricky problem.`

	ProjectOne = `A terminal email client written in Go with fuzzy finding, built on the Charmbracelet
	TUI stack and go-imap.`

	ProjectTwo = `A terminal music player in Go that streams YouTube Music through yt-dlp and mpv behind
	a keyboard-driven interface.`

	ProjectThree = `A recommendation web app that ranks games with TF-IDF vectors and cosine similarity,
	with interactive charts and filters on review scores.`

	ProjectFour = `This portfolio: a Gin server that runs the page's greeting screen and counters in Go
	and streams them to the browser over server-sent events.`
)

// Default returns the built-in page content.
func Default() Content {
	greetings := make([]greeting.Entry, len(greeting.DefaultEntries))
	copy(greetings, greeting.DefaultEntries)
	return Content{
		Name:      "Zach",
		Headline:  "Software developer",
		AboutMe:   AboutMe,
		Age:       DefaultAge,
		Email:     "zachkordaspotter@gmail.com",
		Greetings: greetings,
		Timeline: []Job{
			{
				Title:     "Presentation Expert",
				Company:   "Target",
				StartDate: "Aug 2023",
				EndDate:   "Present",
				LogoPath:  "images/TargetLogo.jpg",
				Bullets: []string{
					"Executed over 300 merchandising transitions on tight timelines by organizing team workflows and adapting quickly to changing priorities",
					"Boosted operational efficiency by managing backroom inventory processes and streamlining communication between floor and logistics teams",
					"Enhanced pricing and signage accuracy across departments by standardizing daily checks and collaborating cross-functionally",
				},
			},
			{
				Title:     "Manager",
				Company:   "Jasons Catered Events",
				StartDate: "Aug 2016",
				EndDate:   "Present",
				LogoPath:  "images/jasonsCateringLogo.png",
				Bullets: []string{
					"Improved client satisfaction by coordinating customized menus and ensuring all dietary requirements were accurately met",
					"Supported event technology by troubleshooting AV equipment and managing digital order tracking systems, reducing technical delays and improving communication",
					"Maintained supply inventory and coordinated timely delivery between venues, optimizing resource allocation and minimizing downtime.",
				},
			},
		},
		Education: []Job{
			{
				Title:     "Bachelor of Computer Science",
				Company:   "Western Governors University",
				StartDate: "Sept 2019",
				EndDate:   "May 2023",
				LogoPath:  "images/WGU-logo.png",
				Bullets: []string{
					"Graduated Magna Cum Laude with 3.8 GPA",
					"Relevant coursework: Data Structures, Algorithms, Web Development",
					"Senior project: Machine Learning recommendation system",
				},
			},
		},
		Projects: []Project{
			{Title: "Terminal Mail", Description: ProjectOne, Tech: []string{"Go", "Bubble Tea", "go-imap"}},
			{Title: "Terminal Music", Description: ProjectTwo, Tech: []string{"Go", "yt-dlp", "mpv"}},
			{Title: "Game Recommender", Description: ProjectThree, Tech: []string{"Python", "TF-IDF", "Plotly"}},
			{Title: "Portfolio", Description: ProjectFour, Tech: []string{"Go", "Gin", "SQLite"}},
		},
		Certifications: []Cert{
			{
				Name:     "Project Management",
				Issuer:   "Comptia",
				Date:     "July 2022",
				LogoPath: "images/comptiaCert.png",
				Details: []string{
					"Certified in agile project management methodology",
					"Verification code: SRRRPGBSWBRQCCDJ",
				},
			},
		},
		TechStack: []TechGroup{
			{Name: "Languages", Items: []string{"Go", "Python", "JavaScript", "SQL", "HTML", "CSS"}},
			{Name: "Tools", Items: []string{"Gin", "HTMX", "SQLite", "Docker", "git", "Linux"}},
			{Name: "Soft skills", Items: []string{"Communication", "teamwork", "problem-solving", "adaptability"}},
		},
	}
}

// Load reads a YAML file over the defaults. Fields missing from the file keep
// their default values. An empty path returns the defaults.
func Load(path string) (Content, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read content %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse content %s: %w", path, err)
	}
	if len(c.Greetings) == 0 {
		return c, fmt.Errorf("content %s: %w", path, greeting.ErrNoEntries)
	}
	return c, nil
}

// YAML renders the content as YAML.
func (c Content) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
