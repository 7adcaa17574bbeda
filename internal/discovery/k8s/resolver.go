package k8s

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/dreschagin/edge-adapter/internal/discovery"
)

const defaultOriginPort int32 = 3000

// Resolver finds the render origin service by label selector.
type Resolver struct {
	clientset kubernetes.Interface
	namespace string
	selector  string
}

func NewInClusterResolver(namespace, selector string) (*Resolver, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("build in-cluster config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client: %w", err)
	}

	return NewResolver(clientset, namespace, selector), nil
}

func NewResolver(clientset kubernetes.Interface, namespace, selector string) *Resolver {
	return &Resolver{
		clientset: clientset,
		namespace: namespace,
		selector:  selector,
	}
}

func (r *Resolver) Resolve(ctx context.Context) (discovery.Snapshot, error) {
	originURL, err := r.resolveServiceURL(ctx)
	if err != nil {
		return discovery.Snapshot{}, fmt.Errorf("resolve render origin: %w", err)
	}
	return discovery.Snapshot{OriginURL: originURL}, nil
}

// resolveServiceURL picks the first matching service by name, preferring a
// port named "http".
func (r *Resolver) resolveServiceURL(ctx context.Context) (*url.URL, error) {
	services, err := r.clientset.CoreV1().Services(r.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: r.selector,
	})
	if err != nil {
		return nil, fmt.Errorf("list services by selector %q: %w", r.selector, err)
	}

	if len(services.Items) == 0 {
		return nil, fmt.Errorf("no services found for selector %q", r.selector)
	}

	sort.Slice(services.Items, func(i, j int) bool {
		return services.Items[i].Name < services.Items[j].Name
	})

	svc := services.Items[0]
	port := defaultOriginPort
	if len(svc.Spec.Ports) > 0 {
		port = svc.Spec.Ports[0].Port
		for _, svcPort := range svc.Spec.Ports {
			if svcPort.Name == "http" {
				port = svcPort.Port
				break
			}
		}
	}

	host := fmt.Sprintf("%s.%s.svc.cluster.local", svc.Name, r.namespace)
	originURL, err := url.Parse(fmt.Sprintf("http://%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("parse origin URL for service %q: %w", svc.Name, err)
	}

	return originURL, nil
}
