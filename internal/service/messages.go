package service

// Сообщения для оператора.
const (
	msgEmailTaken         = "Ya existe un usuario registrado con ese correo electrónico."
	msgIDPUnavailable     = "El servicio de autenticación no está disponible. Intente más tarde."
	msgUserNotFound       = "Usuario no encontrado."
	msgUserInUse          = "No se puede eliminar el usuario: tiene asignaciones o afiliados registrados."
	msgInvalidRole        = "El rol no es válido. Valores permitidos: Administrador, Supervisor, Promotor."
	msgNotAdmin           = "No tienes permisos de administrador"
	msgResetFieldsMissing = "userId y newPassword son requeridos"
	msgPasswordUpdated    = "Contraseña actualizada correctamente"
	msgInvalidPhoto       = "La fotografía no es válida. Use una imagen JPEG, PNG o WEBP."
	msgStorageUnavailable = "No se pudo guardar la fotografía. Intente más tarde."

	msgAlreadyAssigned   = "Este promotor ya está asignado a un supervisor."
	msgNotSupervisor     = "El usuario seleccionado no es supervisor."
	msgNotPromoter       = "El usuario seleccionado no es promotor."
	msgSupervisorMissing = "Supervisor no encontrado."
	msgPromoterMissing   = "Promotor no encontrado."
	msgSectionMissing    = "La sección no existe."
	msgPartyMissing      = "El partido político no existe."
	msgAssignmentMissing = "No se encontró la asignación del promotor."

	msgOnlyPromoters     = "Solo los promotores pueden registrar afiliados."
	msgNoAssignment      = "No tienes un supervisor asignado. Contacta al administrador."
	msgQuotaExceeded     = "Has alcanzado el límite máximo de afiliados asignados (%d). Contacta a tu supervisor si necesitas registrar más."
	msgAffiliateExists   = "Ya existe un afiliado registrado con esa CURP o Clave de Elector."
	msgAffiliateNotFound = "Afiliado no encontrado."

	msgSectionExists = "Ya existe una sección con ese número."
	msgSectionInUse  = "No se puede eliminar la sección: tiene afiliados o asignaciones."
	msgPartyExists   = "Ya existe un partido político con ese nombre."
	msgInvalidNumber = "El número de sección debe ser mayor a 0."
	msgPartyName     = "El nombre del partido es requerido."

	msgOCRDisabled = "El reconocimiento de credenciales no está habilitado."
	msgOCRNoData   = "No se pudieron detectar datos de la credencial. Intente con mejor iluminación o ingrese los datos manualmente."
	msgOCRSuccess  = "Los datos de la credencial han sido procesados exitosamente."
)
