package dashboard

import (
	"fmt"

	"github.com/de-tools/lakespend/pkg/models/domain"
)

type Dataset struct {
	Name  string
	Title string
}

type Page struct {
	Slug     string
	Title    string
	Datasets []Dataset
}

var pages = []Page{
	{
		Slug:  "jobs",
		Title: "Job Analytics",
		Datasets: []Dataset{
			{Name: "most_expensive_jobs", Title: "Most expensive jobs"},
			{Name: "most_expensive_job_runs", Title: "Most expensive job runs"},
			{Name: "job_spend_trend", Title: "Job spend trend"},
			{Name: "failed_jobs_analysis", Title: "Failed jobs"},
		},
	},
	{
		Slug:  "serverless",
		Title: "Serverless Analytics",
		Datasets: []Dataset{
			{Name: "serverless_job_spend", Title: "Serverless job spend"},
			{Name: "serverless_notebook_spend", Title: "Serverless notebook spend"},
			{Name: "serverless_consumption_by_tag", Title: "Serverless consumption by tag"},
		},
	},
	{
		Slug:  "serving",
		Title: "Model Serving",
		Datasets: []Dataset{
			{Name: "model_serving_costs", Title: "Model serving costs"},
			{Name: "batch_inference_costs", Title: "Batch inference costs"},
		},
	},
	{
		Slug:  "users",
		Title: "User Analytics",
		Datasets: []Dataset{
			{Name: "user_serverless_consumption", Title: "Serverless consumption by user"},
			{Name: "user_spend_alerts", Title: "User spend alerts"},
		},
	},
}

func Pages() []Page {
	return pages
}

func LookupPage(slug string) (Page, error) {
	for _, p := range pages {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Page{}, fmt.Errorf("%w: page %q", domain.ErrNotFound, slug)
}

// DatasetNames lists every dataset in page order.
func DatasetNames() []string {
	var names []string
	for _, p := range pages {
		for _, d := range p.Datasets {
			names = append(names, d.Name)
		}
	}
	return names
}

func isDataset(name string) bool {
	for _, n := range DatasetNames() {
		if n == name {
			return true
		}
	}
	return false
}
