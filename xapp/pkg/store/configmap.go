package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/security"
)

const (
	// PolicyDataKey is the ConfigMap data key holding the policy record
	PolicyDataKey = "policy.json"

	configMapPrefix = "flightplan-"
	componentLabel  = "app.kubernetes.io/component"
	componentValue  = "flight-plan"
	managedByLabel  = "app.kubernetes.io/managed-by"
	managedByValue  = "uav-path-planner"
	uavIDLabel      = "uav-policy.oran.io/uav-id"
)

// ConfigMapStore keeps one ConfigMap per UAV policy in a namespace
type ConfigMapStore struct {
	client    kubernetes.Interface
	namespace string
}

// NewConfigMapStore creates a ConfigMap-backed store
func NewConfigMapStore(client kubernetes.Interface, namespace string) *ConfigMapStore {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	return &ConfigMapStore{client: client, namespace: namespace}
}

// ConfigMapName maps a UAV id to an RFC 1123 ConfigMap name
func ConfigMapName(uavID string) string {
	name := strings.ToLower(strings.ReplaceAll(uavID, "_", "-"))
	return strings.TrimRight(configMapPrefix+name, "-.")
}

// Get implements Store
func (s *ConfigMapStore) Get(ctx context.Context, uavID string) (models.FlightPlanPolicy, error) {
	if err := security.ValidateIdentifier(uavID); err != nil {
		return models.FlightPlanPolicy{}, apperrors.NewInvalidInputError("uav_id", err.Error())
	}

	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, ConfigMapName(uavID), metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		return models.FlightPlanPolicy{}, apperrors.NewNotFoundError("flight plan", uavID)
	}
	if err != nil {
		return models.FlightPlanPolicy{}, apperrors.NewServiceError("kubernetes", "get configmap", err)
	}
	if cm.Labels[uavIDLabel] != uavID {
		return models.FlightPlanPolicy{}, apperrors.NewNotFoundError("flight plan", uavID)
	}

	data, ok := cm.Data[PolicyDataKey]
	if !ok {
		return models.FlightPlanPolicy{}, apperrors.NewInvalidInputError(PolicyDataKey,
			fmt.Sprintf("configmap %s has no %s key", cm.Name, PolicyDataKey))
	}
	return models.DecodePolicy([]byte(data))
}

// Put implements Store
func (s *ConfigMapStore) Put(ctx context.Context, policy models.FlightPlanPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	if err := security.ValidateIdentifier(policy.UavID); err != nil {
		return apperrors.NewInvalidInputError("uav_id", err.Error())
	}
	data, err := models.EncodePolicy(policy)
	if err != nil {
		return err
	}

	desired := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ConfigMapName(policy.UavID),
			Namespace: s.namespace,
			Labels: map[string]string{
				componentLabel: componentValue,
				managedByLabel: managedByValue,
				uavIDLabel:     policy.UavID,
			},
		},
		Data: map[string]string{PolicyDataKey: string(data)},
	}

	cms := s.client.CoreV1().ConfigMaps(s.namespace)
	_, err = cms.Create(ctx, desired, metav1.CreateOptions{})
	if err == nil {
		return nil
	}
	if !k8serrors.IsAlreadyExists(err) {
		return apperrors.NewServiceError("kubernetes", "create configmap", err)
	}

	existing, err := cms.Get(ctx, desired.Name, metav1.GetOptions{})
	if err != nil {
		return apperrors.NewServiceError("kubernetes", "get configmap", err)
	}
	if owner := existing.Labels[uavIDLabel]; owner != "" && owner != policy.UavID {
		return apperrors.NewInvalidInputError("uav_id",
			fmt.Sprintf("configmap %s already holds the policy of %s", existing.Name, owner))
	}
	existing.Labels = desired.Labels
	existing.Data = desired.Data
	if _, err := cms.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return apperrors.NewServiceError("kubernetes", "update configmap", err)
	}
	return nil
}

// Delete implements Store
func (s *ConfigMapStore) Delete(ctx context.Context, uavID string) error {
	if _, err := s.Get(ctx, uavID); err != nil && !apperrors.IsInvalidInput(err) {
		return err
	}
	err := s.client.CoreV1().ConfigMaps(s.namespace).Delete(ctx, ConfigMapName(uavID), metav1.DeleteOptions{})
	if k8serrors.IsNotFound(err) {
		return apperrors.NewNotFoundError("flight plan", uavID)
	}
	if err != nil {
		return apperrors.NewServiceError("kubernetes", "delete configmap", err)
	}
	return nil
}

// List implements Store
func (s *ConfigMapStore) List(ctx context.Context) ([]string, error) {
	list, err := s.client.CoreV1().ConfigMaps(s.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("%s=%s", componentLabel, componentValue),
	})
	if err != nil {
		return nil, apperrors.NewServiceError("kubernetes", "list configmaps", err)
	}

	ids := []string{}
	for _, cm := range list.Items {
		if id := cm.Labels[uavIDLabel]; id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
