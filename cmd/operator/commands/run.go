package commands

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	iacawsv1 "github.com/imamik/iacaws/api/v1"
	"github.com/imamik/iacaws/internal/config"
	"github.com/imamik/iacaws/internal/operator/controller"
	"github.com/imamik/iacaws/internal/operator/provisioning"
	"github.com/imamik/iacaws/internal/operator/watch"
	"github.com/imamik/iacaws/internal/platform/aws"
	"github.com/imamik/iacaws/internal/platform/s3"
)

var setupLog = ctrl.Log.WithName("setup")

// run builds the manager and blocks until ctx is cancelled or the
// controller gives up reconnecting.
func run(ctx context.Context, cfg *config.Controller, zapOpts zap.Options) error {
	logger := zap.New(zap.UseFlagOptions(&zapOpts))
	ctrl.SetLogger(logger)
	klog.SetLogger(logger.WithName("klog"))

	setupLog.Info("starting iacaws-operator", "version", version,
		"namespace", cfg.Namespace, "region", cfg.AWS.Region)

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme: iacawsv1.Scheme,
		Metrics: metricsserver.Options{
			BindAddress: cfg.Manager.MetricsBindAddress,
		},
		HealthProbeBindAddress:        cfg.Manager.HealthProbeBindAddress,
		LeaderElection:                cfg.Manager.LeaderElect,
		LeaderElectionID:              cfg.Manager.LeaderElectionID,
		LeaderElectionReleaseOnCancel: true,
	})
	if err != nil {
		setupLog.Error(err, "unable to create manager")
		return fmt.Errorf("unable to create manager: %w", err)
	}

	watchClient, err := client.NewWithWatch(mgr.GetConfig(), client.Options{Scheme: mgr.GetScheme()})
	if err != nil {
		setupLog.Error(err, "unable to create watch client")
		return fmt.Errorf("unable to create watch client: %w", err)
	}

	provisioner, err := aws.NewFromConfig(ctx, cfg.AWSConfig())
	if err != nil {
		setupLog.Error(err, "unable to create AWS provisioner")
		return err
	}

	recorders, err := outcomeRecorders(ctx, cfg, mgr.GetClient(), newArchiveStore)
	if err != nil {
		setupLog.Error(err, "unable to set up outcome recorders")
		return err
	}

	reconciler := provisioning.NewReconciler(provisioner,
		provisioning.WithRecorders(recorders...),
		provisioning.WithErrorClassifier(provisioning.ClassifierFunc(aws.Classify)),
	)

	c, err := controller.NewController(
		watch.NewKubernetesSource(watchClient, cfg.Namespace),
		reconciler,
		cfg.ControllerConfig(),
		controller.WithLogger(ctrl.Log.WithName("iacaws")),
	)
	if err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "IaCAWS")
		return err
	}
	if err := mgr.Add(c); err != nil {
		setupLog.Error(err, "unable to register controller", "controller", "IaCAWS")
		return fmt.Errorf("unable to register controller: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddHealthzCheck("watch", c.LiveCheck); err != nil {
		setupLog.Error(err, "unable to set up watch health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", c.ReadyCheck); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}
	return nil
}

// archiveStore is the part of the S3 client the archive needs at startup.
type archiveStore interface {
	provisioning.ObjectStore
	EnsureBucket(ctx context.Context, bucket string) error
}

type archiveStoreFactory func(ctx context.Context, opts s3.Options) (archiveStore, error)

func newArchiveStore(ctx context.Context, opts s3.Options) (archiveStore, error) {
	c, err := s3.NewClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	return bucketEnsurer{c}, nil
}

// bucketEnsurer adapts the S3 client's variadic EnsureBucket.
type bucketEnsurer struct {
	*s3.Client
}

func (b bucketEnsurer) EnsureBucket(ctx context.Context, bucket string) error {
	return b.Client.EnsureBucket(ctx, bucket)
}

// outcomeRecorders returns the configured outcome sinks in recording order:
// status write-back first, then the S3 archive.
func outcomeRecorders(ctx context.Context, cfg *config.Controller, c client.Client, newStore archiveStoreFactory) ([]provisioning.OutcomeRecorder, error) {
	var recorders []provisioning.OutcomeRecorder
	if cfg.Outcomes.StatusWriteBack {
		recorders = append(recorders, provisioning.NewStatusWriter(c))
	}

	if !cfg.ArchiveEnabled() {
		return recorders, nil
	}

	store, err := newStore(ctx, cfg.S3Options())
	if err != nil {
		return nil, fmt.Errorf("failed to create outcome archive client: %w", err)
	}
	if err := store.EnsureBucket(ctx, cfg.Outcomes.Bucket); err != nil {
		return nil, fmt.Errorf("failed to prepare outcome bucket: %w", err)
	}
	setupLog.Info("archiving outcomes", "bucket", cfg.Outcomes.Bucket, "prefix", cfg.Outcomes.Prefix)

	return append(recorders, provisioning.NewArchiveRecorder(store, cfg.Outcomes.Bucket, cfg.Outcomes.Prefix)), nil
}
