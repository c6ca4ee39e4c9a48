// Package seed provides the sample contest used by fresh deployments
// and the in-memory store.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/gosimple/slug"

	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
)

type problemDef struct {
	title       string
	description string
	inputs      []string
	outputs     []string
}

var sampleProblems = []problemDef{
	{
		title: "Sum of Two Numbers",
		description: "Write a program that takes two integers as input and prints their sum.\n\n" +
			"Input Format:\nTwo integers separated by a space.\n\n" +
			"Output Format:\nThe sum of the two integers.\n\n" +
			"Example:\nInput: 5 3\nOutput: 8",
		inputs:  []string{"5 3", "10 20", "-5 7"},
		outputs: []string{"8", "30", "2"},
	},
	{
		title: "Find Maximum",
		description: "Write a program that takes three integers as input and prints the maximum of the three.\n\n" +
			"Input Format:\nThree integers separated by spaces.\n\n" +
			"Output Format:\nThe maximum of the three integers.\n\n" +
			"Example:\nInput: 10 5 8\nOutput: 10",
		inputs:  []string{"10 5 8", "3 3 3", "-1 -5 -2"},
		outputs: []string{"10", "3", "-1"},
	},
	{
		title: "Reverse String",
		description: "Write a program that takes a string as input and prints it reversed.\n\n" +
			"Input Format:\nA single string.\n\n" +
			"Output Format:\nThe reversed string.\n\n" +
			"Example:\nInput: hello\nOutput: olleh",
		inputs:  []string{"hello", "arena", "12345"},
		outputs: []string{"olleh", "anera", "54321"},
	},
}

// SampleContest builds the demo contest, active for a week starting now.
// Problem ids are slugs derived from the titles.
func SampleContest(now time.Time, timeLimitSeconds, memoryLimitMB int) *model.Contest {
	contest := &model.Contest{
		ContestID:   "weekly-challenge-1",
		Name:        "Weekly Coding Challenge",
		Description: "Test your coding skills with our curated problems!",
		StartTime:   now,
		EndTime:     now.Add(7 * 24 * time.Hour),
	}
	for _, def := range sampleProblems {
		contest.Problems = append(contest.Problems, model.Problem{
			ProblemID:        slug.Make(def.title),
			Title:            def.title,
			Description:      def.description,
			InputTestCases:   def.inputs,
			ExpectedOutputs:  def.outputs,
			TimeLimitSeconds: timeLimitSeconds,
			MemoryLimitMB:    memoryLimitMB,
		})
	}
	return contest
}

// Apply stores the sample contest, skipping when it already exists.
func Apply(ctx context.Context, repo repository.ContestRepository, timeLimitSeconds, memoryLimitMB int) error {
	contest := SampleContest(time.Now(), timeLimitSeconds, memoryLimitMB)
	if _, err := repo.FindContestByID(ctx, contest.ContestID); err == nil {
		return nil
	}
	if err := repo.CreateContest(ctx, contest); err != nil {
		return fmt.Errorf("seed contest %s: %w", contest.ContestID, err)
	}
	return nil
}
