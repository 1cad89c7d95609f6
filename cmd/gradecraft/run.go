package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/gradecraft/internal/app"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/learning/bundle"
	"github.com/yungbote/gradecraft/internal/media/illustrate"
)

type opts struct {
	topic         string
	grade         int
	count         int
	diagramType   string
	description   string
	metricsAddr   string
	question      string
	answer        string
	correctAnswer string
	correct       bool
	raster        bool
}

type builder func(ctx context.Context) (*app.App, error)

var errNoIllustration = errors.New("no illustration stage produced a result")

// run executes one gradecraft command and writes its JSON result to stdout.
func run(ctx context.Context, args []string, stdout io.Writer, build builder) error {
	root := newRootCmd(stdout, build)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout io.Writer, build builder) *cobra.Command {
	o := &opts{}
	root := &cobra.Command{
		Use:           "gradecraft",
		Short:         "Generate grade-appropriate lessons, quizzes and illustrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return errors.New("a command is required; see gradecraft --help")
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			o.topic = strings.TrimSpace(o.topic)
			if o.topic == "" {
				return fmt.Errorf("%s: --topic is required", cmd.Name())
			}
			if o.grade < 0 || o.grade > 12 {
				return fmt.Errorf("%s: --grade must be between 0 and 12", cmd.Name())
			}
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(io.Discard)

	pf := root.PersistentFlags()
	pf.StringVar(&o.topic, "topic", "", "lesson topic")
	pf.IntVar(&o.grade, "grade", 3, "grade level (0 = kindergarten)")
	pf.StringVar(&o.metricsAddr, "metrics-addr", "", "serve /metrics on this address while running")

	exec := func(do func(ctx context.Context, a *app.App) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return execute(cmd.Context(), cmd.Name(), o, stdout, build, do)
		}
	}

	lesson := &cobra.Command{
		Use:   "lesson",
		Short: "Generate a validated lesson",
		Args:  cobra.NoArgs,
		RunE: exec(func(ctx context.Context, a *app.App) (any, error) {
			return a.Content.GenerateLesson(ctx, o.grade, o.topic)
		}),
	}

	quiz := &cobra.Command{
		Use:   "quiz",
		Short: "Generate a validated quiz",
		Args:  cobra.NoArgs,
		RunE: exec(func(ctx context.Context, a *app.App) (any, error) {
			return a.Content.GenerateQuiz(ctx, o.grade, o.topic, o.count)
		}),
	}
	quiz.Flags().IntVar(&o.count, "count", 5, "number of quiz questions")

	feedback := &cobra.Command{
		Use:   "feedback",
		Short: "Write feedback for a student answer",
		Args:  cobra.NoArgs,
		RunE: exec(func(ctx context.Context, a *app.App) (any, error) {
			text, err := a.Backend.GenerateFeedback(ctx, engine.FeedbackRequest{
				Topic:         o.topic,
				GradeLevel:    o.grade,
				Question:      o.question,
				StudentAnswer: o.answer,
				CorrectAnswer: o.correctAnswer,
				IsCorrect:     o.correct,
			})
			if err != nil {
				return nil, err
			}
			return map[string]string{"feedback": text}, nil
		}),
	}
	ff := feedback.Flags()
	ff.StringVar(&o.question, "question", "", "quiz question")
	ff.StringVar(&o.answer, "answer", "", "student answer")
	ff.StringVar(&o.correctAnswer, "correct-answer", "", "expected answer")
	ff.BoolVar(&o.correct, "correct", false, "whether the student answer was correct")

	graph := &cobra.Command{
		Use:   "graph",
		Short: "Generate a knowledge graph",
		Args:  cobra.NoArgs,
		RunE: exec(func(ctx context.Context, a *app.App) (any, error) {
			return a.Backend.GenerateKnowledgeGraph(ctx, engine.GenerationRequest{Topic: o.topic, GradeLevel: o.grade})
		}),
	}

	image := &cobra.Command{
		Use:   "image",
		Short: "Generate an illustration",
		Args:  cobra.NoArgs,
		RunE: exec(func(ctx context.Context, a *app.App) (any, error) {
			res, err := a.Images.GenerateImage(ctx, o.topic, o.description, o.grade, illustrate.ImageOptions{PreferRaster: o.raster})
			return illustration(res, err)
		}),
	}
	image.Flags().StringVar(&o.description, "description", "", "what the picture should show")
	image.Flags().BoolVar(&o.raster, "raster", false, "draw a PNG card when falling back to the programmatic image")

	diagram := &cobra.Command{
		Use:   "diagram",
		Short: "Generate a diagram",
		Args:  cobra.NoArgs,
		RunE: exec(func(ctx context.Context, a *app.App) (any, error) {
			res, err := a.Images.GenerateDiagram(ctx, o.topic, o.diagramType, o.grade, o.description)
			return illustration(res, err)
		}),
	}
	diagram.Flags().StringVar(&o.diagramType, "type", "", "diagram type (flow, cycle, concept)")
	diagram.Flags().StringVar(&o.description, "description", "", "what the diagram should show")

	bundleCmd := &cobra.Command{
		Use:   "bundle",
		Short: "Generate lesson, quiz, knowledge graph and diagram together",
		Args:  cobra.NoArgs,
		RunE: exec(func(ctx context.Context, a *app.App) (any, error) {
			return a.Bundles.Build(ctx, bundle.Request{
				Topic:         o.topic,
				GradeLevel:    o.grade,
				QuestionCount: o.count,
				DiagramType:   o.diagramType,
				Description:   o.description,
			})
		}),
	}
	bf := bundleCmd.Flags()
	bf.IntVar(&o.count, "count", 5, "number of quiz questions")
	bf.StringVar(&o.diagramType, "type", "", "diagram type (flow, cycle, concept)")
	bf.StringVar(&o.description, "description", "", "what the diagram should show")

	root.AddCommand(lesson, quiz, feedback, graph, image, diagram, bundleCmd)
	return root
}

func execute(ctx context.Context, name string, o *opts, stdout io.Writer, build builder, do func(context.Context, *app.App) (any, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := build(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if o.metricsAddr != "" {
		mctx, cancel := context.WithCancel(ctx)
		defer cancel()
		a.Metrics.StartServer(mctx, a.Log, o.metricsAddr)
	}

	out, err := do(ctx, a)
	if err != nil {
		a.Log.Error("command failed", "command", name, "topic", o.topic, "error", err)
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func illustration(res *illustrate.Result, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errNoIllustration
	}
	return res, nil
}
